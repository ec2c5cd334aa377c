package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	clientapi "github.com/iudanet/mealsync/internal/client/api"
	"github.com/iudanet/mealsync/internal/client/auth"
	"github.com/iudanet/mealsync/internal/client/conflict"
	"github.com/iudanet/mealsync/internal/client/connectivity"
	"github.com/iudanet/mealsync/internal/client/data"
	"github.com/iudanet/mealsync/internal/client/iocli"
	"github.com/iudanet/mealsync/internal/client/pending"
	"github.com/iudanet/mealsync/internal/client/storage/boltdb"
	syncsvc "github.com/iudanet/mealsync/internal/client/sync"
	"github.com/iudanet/mealsync/internal/models"
	"github.com/iudanet/mealsync/internal/server"
	"github.com/iudanet/mealsync/internal/server/storage/sqlite"
)

const (
	testUser     = "alice"
	testPassword = "correct horse battery"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer поднимает настоящий сервер синхронизации на sqlite в памяти
func newTestServer(t *testing.T) string {
	t.Helper()

	st, err := sqlite.New(context.Background(), ":memory:")
	require.NoError(t, err)

	handler, stop := server.NewRouter(server.Config{
		JWTSecret: []byte("test-secret"),
		Version:   "test",
	}, st, testLogger())
	srv := httptest.NewServer(handler)

	t.Cleanup(func() {
		srv.Close()
		stop()
		_ = st.Close()
	})
	return srv.URL
}

// device одна установка клиента со своей локальной базой
type device struct {
	cli      *Cli
	db       *boltdb.Storage
	api      *clientapi.Client
	engine   *syncsvc.Service
	pending  *pending.Store
	resolver *conflict.Resolver
	online   *atomic.Bool
}

func newDevice(t *testing.T, serverURL string) *device {
	t.Helper()
	ctx := context.Background()
	logger := testLogger()

	db, err := boltdb.New(ctx, filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	apiClient := clientapi.NewClient(serverURL)

	online := &atomic.Bool{}
	online.Store(true)
	checker := connectivity.NewChecker(apiClient, time.Second, logger)
	conn := &syncsvc.ConnectivityMock{
		IsOnlineFunc: func(ctx context.Context) bool {
			return online.Load() && checker.IsOnline(ctx)
		},
	}

	store, err := pending.NewStore(ctx, db, db, nil, logger)
	require.NoError(t, err)

	resolver := conflict.NewResolver(nil, logger)

	engine, err := syncsvc.NewService(ctx, syncsvc.Deps{
		API:           apiClient,
		Entities:      db,
		Metadata:      db,
		Pending:       store,
		Conflicts:     resolver,
		Connectivity:  conn,
		ConflictStore: db,
	}, syncsvc.Options{Workers: 2}, logger)
	require.NoError(t, err)

	c := New(Deps{
		IO:       iocli.New(strings.NewReader(""), io.Discard),
		Auth:     auth.NewService(apiClient, db, nil, logger),
		Engine:   engine,
		Data:     data.NewService(db, engine, nil, logger),
		Pending:  store,
		Logger:   logger,
	})

	return &device{
		cli:      c,
		db:       db,
		api:      apiClient,
		engine:   engine,
		pending:  store,
		resolver: resolver,
		online:   online,
	}
}

// run выполняет команду с заданным вводом и возвращает вывод
func (d *device) run(t *testing.T, input, command string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	d.cli.io = iocli.New(strings.NewReader(input), &out)
	err := d.cli.Run(context.Background(), command, args)
	return out.String(), err
}

func (d *device) mustRun(t *testing.T, input, command string, args ...string) string {
	t.Helper()

	out, err := d.run(t, input, command, args...)
	require.NoError(t, err, out)
	return out
}

func (d *device) login(t *testing.T) {
	t.Helper()
	d.mustRun(t, lines(testUser, testPassword), "login")
}

// register регистрирует пользователя и входит
func (d *device) register(t *testing.T) {
	t.Helper()
	d.mustRun(t, lines(testUser, testPassword, testPassword), "register")
	d.login(t)
}

// only единственная сущность типа в локальной базе
func (d *device) only(t *testing.T, entityType models.EntityType) *models.Entity {
	t.Helper()

	list, err := d.db.GetAll(context.Background(), entityType)
	require.NoError(t, err)
	require.Len(t, list, 1)
	return list[0]
}

func lines(values ...string) string {
	return strings.Join(values, "\n") + "\n"
}
