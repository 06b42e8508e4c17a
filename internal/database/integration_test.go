package database_test // Используем _test пакет для изоляции

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	// Докер клиент для проверки доступности
	"github.com/docker/docker/client"

	"story-reader/internal/database"
	"story-reader/internal/interfaces"
	"story-reader/internal/models"
)

// RepositoryTestSuite поднимает PostgreSQL в контейнере и гоняет
// репозитории против настоящей схемы.
type RepositoryTestSuite struct {
	suite.Suite
	ctx         context.Context
	pgContainer *postgres.PostgresContainer
	pgPool      *pgxpool.Pool
	userRepo    interfaces.UserRepository
	storyRepo   interfaces.StoryRepository
	stateRepo   interfaces.PlaybackStateRepository
	logger      *zap.Logger
}

func (s *RepositoryTestSuite) SetupSuite() {
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

	// Миграции вшиты в бинарник, применяем их как в main
	require.NoError(s.T(), database.ApplyMigrations(s.pgPool), "Failed to run migrations")

	s.userRepo = database.NewPgUserRepository(s.pgPool, s.logger)
	s.storyRepo = database.NewPgStoryRepository(s.pgPool, s.logger)
	s.stateRepo = database.NewPgPlaybackStateRepository(s.pgPool, s.logger)
}

func (s *RepositoryTestSuite) TearDownSuite() {
	if s.pgPool != nil {
		s.pgPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Error("Failed to terminate postgres container", zap.Error(err))
		}
	}
}

// Перед каждым тестом очищаем таблицы
func (s *RepositoryTestSuite) SetupTest() {
	_, err := s.pgPool.Exec(s.ctx, "TRUNCATE TABLE users RESTART IDENTITY CASCADE")
	require.NoError(s.T(), err, "Failed to truncate users table")
	_, err = s.pgPool.Exec(s.ctx, "TRUNCATE TABLE playback_states")
	require.NoError(s.T(), err, "Failed to truncate playback_states table")
}

// TestRepositoryTestSuite запускает набор тестов
func TestRepositoryTestSuite(t *testing.T) {
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

	suite.Run(t, new(RepositoryTestSuite))
}

// --- Вспомогательные функции ---

func (s *RepositoryTestSuite) createUser(email string) *models.User {
	user := &models.User{
		Email:        email,
		PasswordHash: "$2a$10$fakefakefakefakefakefakefakefakefakefakefakefakefake",
	}
	require.NoError(s.T(), s.userRepo.CreateUser(s.ctx, user))
	require.NotEqual(s.T(), uuid.Nil, user.ID)
	return user
}

func (s *RepositoryTestSuite) createStory(userID uuid.UUID, title, content string) *models.Story {
	story := &models.Story{
		UserID:  userID,
		Title:   title,
		Content: content,
	}
	require.NoError(s.T(), s.storyRepo.Create(s.ctx, story))
	return story
}

// --- Тесты пользователей ---

func (s *RepositoryTestSuite) TestCreateUser_DuplicateEmail() {
	t := s.T()
	s.createUser("dup@example.com")

	err := s.userRepo.CreateUser(s.ctx, &models.User{
		Email:        "dup@example.com",
		PasswordHash: "hash",
	})
	assert.ErrorIs(t, err, models.ErrEmailAlreadyExists)
}

func (s *RepositoryTestSuite) TestGetUserByEmail() {
	t := s.T()
	created := s.createUser("reader@example.com")

	found, err := s.userRepo.GetUserByEmail(s.ctx, "reader@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = s.userRepo.GetUserByEmail(s.ctx, "missing@example.com")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

// --- Тесты историй ---

func (s *RepositoryTestSuite) TestStoryList_NewestFirst() {
	t := s.T()
	user := s.createUser("order@example.com")

	first := s.createStory(user.ID, "Первая", "текст первой")
	// created_at имеет микросекундную точность, пауза гарантирует порядок
	time.Sleep(5 * time.Millisecond)
	second := s.createStory(user.ID, "Вторая", "текст второй")
	time.Sleep(5 * time.Millisecond)
	third := s.createStory(user.ID, "Третья", "текст третьей")

	stories, err := s.storyRepo.ListByUserID(s.ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, stories, 3)
	assert.Equal(t, third.ID, stories[0].ID, "новые истории идут первыми")
	assert.Equal(t, second.ID, stories[1].ID)
	assert.Equal(t, first.ID, stories[2].ID)
}

func (s *RepositoryTestSuite) TestStoryList_EmptyForNewUser() {
	t := s.T()
	user := s.createUser("empty@example.com")

	stories, err := s.storyRepo.ListByUserID(s.ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, stories)
}

func (s *RepositoryTestSuite) TestStoryOwnershipIsolation() {
	t := s.T()
	owner := s.createUser("owner@example.com")
	other := s.createUser("other@example.com")
	story := s.createStory(owner.ID, "Личная", "секретный текст")

	// Чужая история недоступна ни на чтение, ни на запись
	_, err := s.storyRepo.GetByID(s.ctx, story.ID, other.ID)
	assert.ErrorIs(t, err, models.ErrStoryNotFound)

	err = s.storyRepo.Update(s.ctx, &models.Story{
		ID: story.ID, UserID: other.ID, Title: "x", Content: "y",
	})
	assert.ErrorIs(t, err, models.ErrStoryNotFound)

	err = s.storyRepo.Delete(s.ctx, story.ID, other.ID)
	assert.ErrorIs(t, err, models.ErrStoryNotFound)
}

func (s *RepositoryTestSuite) TestStoryUpdateAndDelete() {
	t := s.T()
	user := s.createUser("crud@example.com")
	story := s.createStory(user.ID, "Черновик", "первый вариант")

	err := s.storyRepo.Update(s.ctx, &models.Story{
		ID: story.ID, UserID: user.ID, Title: "Чистовик", Content: "второй вариант",
	})
	require.NoError(t, err)

	updated, err := s.storyRepo.GetByID(s.ctx, story.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Чистовик", updated.Title)
	assert.Equal(t, "второй вариант", updated.Content)

	require.NoError(t, s.storyRepo.Delete(s.ctx, story.ID, user.ID))

	_, err = s.storyRepo.GetByID(s.ctx, story.ID, user.ID)
	assert.ErrorIs(t, err, models.ErrStoryNotFound)

	err = s.storyRepo.Delete(s.ctx, story.ID, user.ID)
	assert.ErrorIs(t, err, models.ErrStoryNotFound, "повторное удаление")
}

// --- Тесты прогресса воспроизведения ---

func (s *RepositoryTestSuite) TestPlaybackState_GetNotFound() {
	t := s.T()
	user := s.createUser("pb0@example.com")

	_, err := s.stateRepo.Get(s.ctx, user.ID, uuid.New())
	assert.ErrorIs(t, err, models.ErrPlaybackStateNotFound)
}

func (s *RepositoryTestSuite) TestPlaybackState_UpsertAndRead() {
	t := s.T()
	user := s.createUser("pb1@example.com")
	story := s.createStory(user.ID, "История", "длинный текст для чтения вслух")

	err := s.stateRepo.Upsert(s.ctx, &models.PlaybackState{
		UserID: user.ID, StoryID: story.ID, Progress: 10, Seq: 0,
	})
	require.NoError(t, err)

	state, err := s.stateRepo.Get(s.ctx, user.ID, story.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, state.Progress)

	// Обычное обновление с большим seq перезаписывает
	err = s.stateRepo.Upsert(s.ctx, &models.PlaybackState{
		UserID: user.ID, StoryID: story.ID, Progress: 25, Seq: 1,
	})
	require.NoError(t, err)

	state, err = s.stateRepo.Get(s.ctx, user.ID, story.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, state.Progress)
}

func (s *RepositoryTestSuite) TestPlaybackState_StaleWriteIgnored() {
	t := s.T()
	user := s.createUser("pb2@example.com")
	story := s.createStory(user.ID, "История", "текст")

	require.NoError(t, s.stateRepo.Upsert(s.ctx, &models.PlaybackState{
		UserID: user.ID, StoryID: story.ID, Progress: 40, Epoch: 1, Seq: 5,
	}))

	// Запоздавшая запись той же сессии с меньшим seq не откатывает прогресс
	require.NoError(t, s.stateRepo.Upsert(s.ctx, &models.PlaybackState{
		UserID: user.ID, StoryID: story.ID, Progress: 20, Epoch: 1, Seq: 3,
	}))

	state, err := s.stateRepo.Get(s.ctx, user.ID, story.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, state.Progress, "старый seq проигрывает")
}

func (s *RepositoryTestSuite) TestPlaybackState_SeqZeroResets() {
	t := s.T()
	user := s.createUser("pb3@example.com")
	story := s.createStory(user.ID, "История", "текст")

	require.NoError(t, s.stateRepo.Upsert(s.ctx, &models.PlaybackState{
		UserID: user.ID, StoryID: story.ID, Progress: 90, Epoch: 1, Seq: 12,
	}))

	// Seq 0 с новым epoch — начало новой сессии, перебивает старую нумерацию
	require.NoError(t, s.stateRepo.Upsert(s.ctx, &models.PlaybackState{
		UserID: user.ID, StoryID: story.ID, Progress: 90, Epoch: 2, Seq: 0,
	}))

	require.NoError(t, s.stateRepo.Upsert(s.ctx, &models.PlaybackState{
		UserID: user.ID, StoryID: story.ID, Progress: 95, Epoch: 2, Seq: 1,
	}))

	state, err := s.stateRepo.Get(s.ctx, user.ID, story.ID)
	require.NoError(t, err)
	assert.Equal(t, 95, state.Progress, "после сброса seq нумерация начинается заново")
}

func (s *RepositoryTestSuite) TestPlaybackState_LateWriteFromPreviousSessionIgnored() {
	t := s.T()
	user := s.createUser("pb5@example.com")
	story := s.createStory(user.ID, "История", "текст подлиннее для воспроизведения")

	write := func(progress int, epoch, seq int64) {
		require.NoError(t, s.stateRepo.Upsert(s.ctx, &models.PlaybackState{
			UserID: user.ID, StoryID: story.ID, Progress: progress, Epoch: epoch, Seq: seq,
		}))
	}

	// Первая сессия: старт и пара границ.
	write(0, 100, 0)
	write(5, 100, 1)
	write(10, 100, 2)

	// Повторный запуск той же истории: новая сессия, новый epoch.
	write(0, 200, 0)
	write(2, 200, 1)

	// Зависшая запись первой сессии приходит последней. Ее seq больше,
	// но epoch чужой — она не должна затирать прогресс новой сессии.
	write(15, 100, 3)

	state, err := s.stateRepo.Get(s.ctx, user.ID, story.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, state.Progress, "хвост завершенной сессии отброшен")

	// Следующая запись новой сессии по-прежнему применяется.
	write(4, 200, 2)

	state, err = s.stateRepo.Get(s.ctx, user.ID, story.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, state.Progress)
}

func (s *RepositoryTestSuite) TestPlaybackState_DeleteByStoryID() {
	t := s.T()
	user := s.createUser("pb4@example.com")
	story := s.createStory(user.ID, "История", "текст")

	require.NoError(t, s.stateRepo.Upsert(s.ctx, &models.PlaybackState{
		UserID: user.ID, StoryID: story.ID, Progress: 5, Seq: 0,
	}))

	removed, err := s.stateRepo.DeleteByStoryID(s.ctx, story.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = s.stateRepo.Get(s.ctx, user.ID, story.ID)
	assert.ErrorIs(t, err, models.ErrPlaybackStateNotFound)
}

func (s *RepositoryTestSuite) TestPlaybackState_PerUserIsolation() {
	t := s.T()
	alice := s.createUser("alice@example.com")
	bob := s.createUser("bob@example.com")
	story := s.createStory(alice.ID, "Общая по ID", "текст")

	require.NoError(t, s.stateRepo.Upsert(s.ctx, &models.PlaybackState{
		UserID: alice.ID, StoryID: story.ID, Progress: 30, Seq: 0,
	}))
	require.NoError(t, s.stateRepo.Upsert(s.ctx, &models.PlaybackState{
		UserID: bob.ID, StoryID: story.ID, Progress: 70, Seq: 0,
	}))

	aliceState, err := s.stateRepo.Get(s.ctx, alice.ID, story.ID)
	require.NoError(t, err)
	bobState, err := s.stateRepo.Get(s.ctx, bob.ID, story.ID)
	require.NoError(t, err)

	assert.Equal(t, 30, aliceState.Progress)
	assert.Equal(t, 70, bobState.Progress)
}
