package utils

import (
	"fmt"
	"os"
	"strings"
)

// ReadSecret читает секрет из файла в стандартном пути Docker Secrets.
// Если файла нет (локальный запуск без Docker), пробуем переменную
// окружения SECRET_<ИМЯ>.
func ReadSecret(secretName string) (string, error) {
	filePath := fmt.Sprintf("/run/secrets/%s", secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err == nil {
		secret := strings.TrimSpace(string(secretBytes))
		if secret == "" {
			return "", fmt.Errorf("secret file %s is empty", filePath)
		}
		return secret, nil
	}

	envName := "SECRET_" + strings.ToUpper(secretName)
	if val := strings.TrimSpace(os.Getenv(envName)); val != "" {
		return val, nil
	}

	return "", fmt.Errorf("secret %q not found: no file %s and env %s is empty", secretName, filePath, envName)
}
