package service_test // Используем _test пакет для изоляции

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	// Докер клиент для проверки доступности
	"github.com/docker/docker/client"

	"story-reader/internal/config"
	"story-reader/internal/database"
	"story-reader/internal/interfaces"
	"story-reader/internal/models"
	"story-reader/internal/service"
)

// AuthIntegrationTestSuite содержит состояние для интеграционных тестов аутентификации
type AuthIntegrationTestSuite struct {
	suite.Suite
	ctx         context.Context
	pgContainer *postgres.PostgresContainer
	rdContainer *tcredis.RedisContainer
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	config      *config.Config
	userRepo    interfaces.UserRepository
	tokenRepo   interfaces.TokenRepository
	authService service.AuthService
	logger      *zap.Logger
}

// SetupSuite выполняется один раз перед всеми тестами в наборе
func (s *AuthIntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	s.logger, err = zap.NewDevelopment()
	require.NoError(s.T(), err, "Failed to create logger for tests")

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start postgres container")

	pgConnStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get postgres connection string")

	s.pgPool, err = pgxpool.New(s.ctx, pgConnStr)
	require.NoError(s.T(), err, "Failed to connect to test postgres")

	require.NoError(s.T(), database.ApplyMigrations(s.pgPool), "Failed to run migrations")

	s.rdContainer, err = tcredis.Run(s.ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("* Ready to accept connections").
				WithOccurrence(1).
				WithStartupTimeout(1*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start redis container")

	redisHost, err := s.rdContainer.Host(s.ctx)
	require.NoError(s.T(), err)
	redisPort, err := s.rdContainer.MappedPort(s.ctx, "6379/tcp")
	require.NoError(s.T(), err)
	redisAddr := fmt.Sprintf("%s:%s", redisHost, redisPort.Port())

	s.redisClient = redis.NewClient(&redis.Options{Addr: redisAddr})
	_, err = s.redisClient.Ping(s.ctx).Result()
	require.NoError(s.T(), err, "Failed to connect to test redis")

	s.config = &config.Config{
		RedisAddr:       redisAddr,
		AccessTokenTTL:  5 * time.Minute,
		RefreshTokenTTL: 10 * time.Minute,
		JWTSecret:       "test-jwt-secret",
		PasswordPepper:  "test-pepper",
		Env:             "test",
		LogLevel:        "debug",
	}

	s.userRepo = database.NewPgUserRepository(s.pgPool, s.logger)
	s.tokenRepo = database.NewRedisTokenRepository(s.redisClient, s.logger)
	s.authService = service.NewAuthService(s.userRepo, s.tokenRepo, s.config, s.logger)
}

// TearDownSuite выполняется один раз после всех тестов в наборе
func (s *AuthIntegrationTestSuite) TearDownSuite() {
	if s.pgPool != nil {
		s.pgPool.Close()
	}
	if s.redisClient != nil {
		s.redisClient.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Error("Failed to terminate postgres container", zap.Error(err))
		}
	}
	if s.rdContainer != nil {
		if err := s.rdContainer.Terminate(s.ctx); err != nil {
			s.logger.Error("Failed to terminate redis container", zap.Error(err))
		}
	}
}

// Перед каждым тестом очищаем Redis и таблицы БД
func (s *AuthIntegrationTestSuite) SetupTest() {
	require.NoError(s.T(), s.redisClient.FlushDB(s.ctx).Err(), "Failed to flush Redis DB")
	_, err := s.pgPool.Exec(s.ctx, "TRUNCATE TABLE users RESTART IDENTITY CASCADE")
	require.NoError(s.T(), err, "Failed to truncate users table")
}

// TestAuthIntegrationTestSuite запускает набор тестов
func TestAuthIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		t.Fatalf("Docker client init error: %v. Ensure Docker is running and accessible.", err)
	}
	if _, err := cli.Ping(context.Background()); err != nil {
		t.Fatalf("Docker daemon is not running or accessible: %v", err)
	}
	cli.Close()

	suite.Run(t, new(AuthIntegrationTestSuite))
}

// --- Сами Тестовые Функции ---

func (s *AuthIntegrationTestSuite) TestRegisterAndLogin_Success() {
	t := s.T()
	ctx := context.Background()
	email := "reader@example.com"
	password := "password123"

	user, err := s.authService.Register(ctx, email, password)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, email, user.Email)
	assert.NotEqual(t, password, user.PasswordHash)

	tokens, err := s.authService.Login(ctx, email, password)
	require.NoError(t, err)
	require.NotNil(t, tokens)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)

	claims, err := s.authService.VerifyAccessToken(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func (s *AuthIntegrationTestSuite) TestRegister_EmailNormalized() {
	t := s.T()
	ctx := context.Background()

	user, err := s.authService.Register(ctx, "  Reader@Example.COM ", "password123")
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", user.Email)

	// Логин работает в любом регистре
	_, err = s.authService.Login(ctx, "READER@example.com", "password123")
	assert.NoError(t, err)
}

func (s *AuthIntegrationTestSuite) TestRegister_DuplicateEmail() {
	t := s.T()
	ctx := context.Background()

	_, err := s.authService.Register(ctx, "dup@example.com", "password123")
	require.NoError(t, err)

	_, err = s.authService.Register(ctx, "dup@example.com", "password456")
	assert.ErrorIs(t, err, models.ErrEmailAlreadyExists)
}

func (s *AuthIntegrationTestSuite) TestLogin_WrongPassword() {
	t := s.T()
	ctx := context.Background()

	_, err := s.authService.Register(ctx, "wrongpass@example.com", "password123")
	require.NoError(t, err)

	_, err = s.authService.Login(ctx, "wrongpass@example.com", "password124")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, err = s.authService.Login(ctx, "unknown@example.com", "password123")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials, "несуществующий email дает ту же ошибку")
}

func (s *AuthIntegrationTestSuite) TestRefresh_RotatesTokens() {
	t := s.T()
	ctx := context.Background()

	_, err := s.authService.Register(ctx, "rotate@example.com", "password123")
	require.NoError(t, err)
	tokens, err := s.authService.Login(ctx, "rotate@example.com", "password123")
	require.NoError(t, err)

	newTokens, err := s.authService.Refresh(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, newTokens.RefreshToken)

	// Старый refresh токен отозван ротацией
	_, err = s.authService.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, models.ErrTokenNotFound)

	// Новая пара рабочая
	_, err = s.authService.VerifyAccessToken(ctx, newTokens.AccessToken)
	assert.NoError(t, err)
}

func (s *AuthIntegrationTestSuite) TestLogout_RevokesAccessToken() {
	t := s.T()
	ctx := context.Background()

	user, err := s.authService.Register(ctx, "logout@example.com", "password123")
	require.NoError(t, err)
	tokens, err := s.authService.Login(ctx, "logout@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, s.authService.Logout(ctx, user.ID, tokens.AccessUUID, tokens.RefreshUUID))

	_, err = s.authService.VerifyAccessToken(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, models.ErrTokenInvalid, "отозванный токен не проходит проверку по хранилищу")

	_, err = s.authService.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, models.ErrTokenNotFound)
}

func (s *AuthIntegrationTestSuite) TestVerifyAccessToken_BadSignature() {
	t := s.T()
	ctx := context.Background()

	otherCfg := *s.config
	otherCfg.JWTSecret = "different-secret"
	otherSvc := service.NewAuthService(s.userRepo, s.tokenRepo, &otherCfg, s.logger)

	_, err := s.authService.Register(ctx, "sig@example.com", "password123")
	require.NoError(t, err)
	tokens, err := s.authService.Login(ctx, "sig@example.com", "password123")
	require.NoError(t, err)

	_, err = otherSvc.VerifyAccessToken(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, models.ErrTokenInvalid)
}
