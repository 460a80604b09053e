package grpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mr1hm/flood-alerts/internal/models"
	"github.com/mr1hm/flood-alerts/internal/repository"
)

type mockAlertRepo struct {
	mu     sync.Mutex
	alerts []models.Alert
	last   repository.AlertFilter
}

func (m *mockAlertRepo) AddAlert(ctx context.Context, a *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, *a)
	return nil
}

func (m *mockAlertRepo) ListAlerts(ctx context.Context, opts repository.AlertFilter) ([]models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = opts
	var out []models.Alert
	for _, a := range m.alerts {
		if opts.MinLevel != nil && a.Level < *opts.MinLevel {
			continue
		}
		if opts.Type != nil && a.Type != *opts.Type {
			continue
		}
		out = append(out, a)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func (m *mockAlertRepo) ResolveAlert(ctx context.Context, id string) error {
	return nil
}

func startTestServer(t *testing.T, repo repository.AlertRepository) (*Broadcaster, *AlertServiceClient) {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	b := NewBroadcaster()
	srv := NewServer(repo, b)
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		conn.Close()
		b.Close()
		srv.Stop()
	})
	return b, NewAlertServiceClient(conn)
}

func waitForSubscribers(t *testing.T, b *Broadcaster, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return b.SubscriberCount() == n }, time.Second, 5*time.Millisecond)
}

func TestStreamAlerts_MinLevelFilter(t *testing.T) {
	b, client := startTestServer(t, &mockAlertRepo{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := structpb.NewStruct(map[string]any{"min_level": "HIGH"})
	require.NoError(t, err)
	stream, err := client.StreamAlerts(ctx, req)
	require.NoError(t, err)

	waitForSubscribers(t, b, 1)
	b.Broadcast(testAlert("low", models.AlertLevelLow))
	b.Broadcast(testAlert("crit", models.AlertLevelCritical))

	msg, err := stream.Recv()
	require.NoError(t, err)

	got, err := AlertFromStruct(msg)
	require.NoError(t, err)
	assert.Equal(t, "crit", got.ID)
	assert.Equal(t, models.AlertLevelCritical, got.Level)
	assert.Equal(t, 5.8, got.Value)
	assert.True(t, got.Timestamp.Equal(testAlert("", 0).Timestamp))
}

func TestStreamAlerts_InvalidFilter(t *testing.T) {
	_, client := startTestServer(t, &mockAlertRepo{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := structpb.NewStruct(map[string]any{"min_level": "PANIC"})
	require.NoError(t, err)
	stream, err := client.StreamAlerts(ctx, req)
	require.NoError(t, err)

	_, err = stream.Recv()
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestStreamAlerts_EndsOnClose(t *testing.T) {
	b, client := startTestServer(t, &mockAlertRepo{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := client.StreamAlerts(ctx, &structpb.Struct{})
	require.NoError(t, err)
	waitForSubscribers(t, b, 1)

	b.Close()
	_, err = stream.Recv()
	assert.Error(t, err)
}

func TestRecentAlerts(t *testing.T) {
	repo := &mockAlertRepo{}
	ctx := context.Background()
	require.NoError(t, repo.AddAlert(ctx, testAlert("a-1", models.AlertLevelLow)))
	require.NoError(t, repo.AddAlert(ctx, testAlert("a-2", models.AlertLevelHigh)))

	_, client := startTestServer(t, repo)

	req, err := structpb.NewStruct(map[string]any{"min_level": "MEDIUM", "limit": 5})
	require.NoError(t, err)
	resp, err := client.RecentAlerts(ctx, req)
	require.NoError(t, err)

	list := resp.GetFields()["alerts"].GetListValue().GetValues()
	require.Len(t, list, 1)
	assert.Equal(t, "a-2", list[0].GetStructValue().GetFields()["id"].GetStringValue())
	assert.Equal(t, 5, repo.last.Limit)
}

func TestRecentAlerts_TypeFilterReachesRepository(t *testing.T) {
	repo := &mockAlertRepo{}
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.AddAlert(ctx, testAlert(fmt.Sprintf("w-%d", i), models.AlertLevelHigh)))
	}
	for i := 0; i < 2; i++ {
		a := testAlert(fmt.Sprintf("r-%d", i), models.AlertLevelHigh)
		a.Type = models.SensorTypeRainGauge
		a.Unit = "mm/h"
		require.NoError(t, repo.AddAlert(ctx, a))
	}

	_, client := startTestServer(t, repo)

	req, err := structpb.NewStruct(map[string]any{"type": "RAIN_GAUGE", "limit": 2})
	require.NoError(t, err)
	resp, err := client.RecentAlerts(ctx, req)
	require.NoError(t, err)

	require.NotNil(t, repo.last.Type)
	assert.Equal(t, models.SensorTypeRainGauge, *repo.last.Type)
	list := resp.GetFields()["alerts"].GetListValue().GetValues()
	require.Len(t, list, 2)
	for _, v := range list {
		assert.Equal(t, "RAIN_GAUGE", v.GetStructValue().GetFields()["type"].GetStringValue())
	}
}

func TestAlertStructRoundTrip(t *testing.T) {
	in := testAlert("a-9", models.AlertLevelMedium)
	in.Description = "Water Level alert - level MEDIUM"

	s, err := AlertToStruct(in)
	require.NoError(t, err)
	out, err := AlertFromStruct(s)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
