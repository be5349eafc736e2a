package engine

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IceMocha1125/Water-Level-Monitoring/internal/cooldown"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/dispatch"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/models"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/provider"
)

// In-memory stores standing in for the Postgres repositories

type memStore struct {
	mu         sync.Mutex
	alerts     []*models.AlertEvent
	deliveries []*models.DeliveryRecord
	readings   []*models.Reading
	alertErr   error
}

func (m *memStore) CreateAlertEvent(ctx context.Context, event *models.AlertEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.alertErr != nil {
		return m.alertErr
	}
	m.alerts = append(m.alerts, event)
	return nil
}

func (m *memStore) CreateDeliveryRecord(ctx context.Context, record *models.DeliveryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, record)
	return nil
}

func (m *memStore) CreateReading(ctx context.Context, reading *models.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings = append(m.readings, reading)
	return nil
}

type staticResolver struct {
	residents []models.Resident
	err       error
}

func (r *staticResolver) ListResidents(ctx context.Context) ([]models.Resident, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.residents, nil
}

func okProvider(ref string) provider.Provider {
	return provider.Func(func(ctx context.Context, address, message string) (string, error) {
		return ref, nil
	})
}

func newTestEngine(t *testing.T, resolver RecipientResolver, store *memStore) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	gate := cooldown.NewGate(redis.NewClient(&redis.Options{Addr: mr.Addr()}), cooldown.Config{
		Interval: 30 * time.Minute,
	})

	dispatcher := dispatch.NewDispatcher(dispatch.Config{
		Providers: map[models.Channel]provider.Provider{
			models.ChannelEmail: okProvider("email-ref"),
			models.ChannelSMS:   okProvider("sms-ref"),
			models.ChannelPush:  okProvider("push-ref"),
		},
		ConcurrencyPerChannel: 4,
		ProviderTimeout:       time.Second,
		SMSCriticalOnly:       true,
	})

	return New(gate, resolver, store, store, store, dispatcher), mr
}

func TestHandleReading_CriticalEndToEnd(t *testing.T) {
	residents := []models.Resident{
		{
			ID:      "r1",
			Name:    "Ana Reyes",
			Contact: "+639171234567",
			Email:   "ana@example.com",
			Preferences: models.NotificationPreferences{
				Email: true,
				SMS:   true,
			},
		},
		{
			ID:          "r2",
			Name:        "Ben Santos",
			Preferences: models.NotificationPreferences{Push: true},
		},
	}

	store := &memStore{}
	eng, mr := newTestEngine(t, &staticResolver{residents: residents}, store)

	reading := models.NewReading(20, "Cupang Proper")
	result, err := eng.HandleReading(context.Background(), reading)

	require.NoError(t, err)
	require.True(t, result.Alerted)
	require.NotNil(t, result.Alert)
	assert.Equal(t, models.StatusCritical, result.Alert.Status)
	assert.Equal(t,
		"ALERT: Water level at Cupang Proper is 20 inches (CRITICAL). Please take necessary precautions.",
		result.Alert.Message)

	// One alert event, exactly three delivery records: email+sms for r1,
	// push for r2
	require.Len(t, store.alerts, 1)
	require.Len(t, store.deliveries, 3)

	byChannel := map[models.Channel]*models.DeliveryRecord{}
	for _, rec := range store.deliveries {
		assert.Equal(t, models.DeliveryDelivered, rec.Status)
		assert.Equal(t, result.Alert.ID, rec.AlertID)
		byChannel[rec.Channel] = rec
	}
	assert.Equal(t, "r1", byChannel[models.ChannelEmail].ResidentID)
	assert.Equal(t, "r1", byChannel[models.ChannelSMS].ResidentID)
	assert.Equal(t, "r2", byChannel[models.ChannelPush].ResidentID)

	// Cooldown advanced to the reading's time
	raw, err := mr.Get("alert:cooldown:last")
	require.NoError(t, err)
	last, err := strconv.ParseInt(raw, 10, 64)
	require.NoError(t, err)
	assert.Equal(t, reading.ObservedAt.UnixMilli(), last)
}

func TestHandleReading_HighSkipsSMS(t *testing.T) {
	residents := []models.Resident{
		{
			ID:      "r1",
			Name:    "Ana Reyes",
			Contact: "+639171234567",
			Email:   "ana@example.com",
			Preferences: models.NotificationPreferences{
				Email: true,
				SMS:   true,
			},
		},
	}

	store := &memStore{}
	eng, _ := newTestEngine(t, &staticResolver{residents: residents}, store)

	result, err := eng.HandleReading(context.Background(), models.NewReading(15, "Cupang Proper"))

	require.NoError(t, err)
	require.True(t, result.Alerted)
	assert.Equal(t, models.StatusHigh, result.Alert.Status)

	require.Len(t, store.deliveries, 1)
	assert.Equal(t, models.ChannelEmail, store.deliveries[0].Channel)
}

func TestHandleReading_NonNotifiableRecordedOnly(t *testing.T) {
	store := &memStore{}
	eng, mr := newTestEngine(t, &staticResolver{}, store)

	result, err := eng.HandleReading(context.Background(), models.NewReading(5, "Cupang Proper"))

	require.NoError(t, err)
	assert.False(t, result.Alerted)
	assert.Equal(t, models.StatusNormal, result.Status)

	assert.Len(t, store.readings, 1)
	assert.Empty(t, store.alerts)
	assert.Empty(t, store.deliveries)
	assert.False(t, mr.Exists("alert:cooldown:last"))
}

func TestHandleReading_SuppressedWithinCooldown(t *testing.T) {
	residents := []models.Resident{
		{ID: "r1", Name: "Ana", Email: "ana@example.com",
			Preferences: models.NotificationPreferences{Email: true}},
	}

	store := &memStore{}
	eng, _ := newTestEngine(t, &staticResolver{residents: residents}, store)

	first, err := eng.HandleReading(context.Background(), models.NewReading(20, "Cupang Proper"))
	require.NoError(t, err)
	require.True(t, first.Alerted)

	second, err := eng.HandleReading(context.Background(), models.NewReading(21, "Cupang Proper"))
	require.NoError(t, err)
	assert.False(t, second.Alerted)

	// Still only the first cycle's artifacts
	assert.Len(t, store.alerts, 1)
	assert.Len(t, store.deliveries, 1)
}

func TestHandleReading_RosterFailureAbortsCycle(t *testing.T) {
	store := &memStore{}
	eng, mr := newTestEngine(t, &staticResolver{err: errors.New("db down")}, store)

	result, err := eng.HandleReading(context.Background(), models.NewReading(20, "Cupang Proper"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRosterUnavailable)
	assert.Nil(t, result)

	// No partial dispatch, no alert, cooldown untouched, lock released
	assert.Empty(t, store.alerts)
	assert.Empty(t, store.deliveries)
	assert.False(t, mr.Exists("alert:cooldown:last"))
	assert.False(t, mr.Exists("alert:cooldown:lock"))

	// Next qualifying reading runs normally
	good := &staticResolver{residents: []models.Resident{
		{ID: "r1", Name: "Ana", Email: "ana@example.com",
			Preferences: models.NotificationPreferences{Email: true}},
	}}
	eng2, _ := newTestEngine(t, good, store)
	result, err = eng2.HandleReading(context.Background(), models.NewReading(20, "Cupang Proper"))
	require.NoError(t, err)
	assert.True(t, result.Alerted)
}

func TestHandleReading_AlertStoreFailureAbortsBeforeDispatch(t *testing.T) {
	residents := []models.Resident{
		{ID: "r1", Name: "Ana", Email: "ana@example.com",
			Preferences: models.NotificationPreferences{Email: true}},
	}

	store := &memStore{alertErr: errors.New("insert failed")}
	eng, mr := newTestEngine(t, &staticResolver{residents: residents}, store)

	_, err := eng.HandleReading(context.Background(), models.NewReading(20, "Cupang Proper"))

	require.Error(t, err)
	assert.Empty(t, store.deliveries)
	assert.False(t, mr.Exists("alert:cooldown:last"))
}

func TestHandleReading_ConcurrentReadings_OneCycle(t *testing.T) {
	residents := []models.Resident{
		{ID: "r1", Name: "Ana", Email: "ana@example.com",
			Preferences: models.NotificationPreferences{Email: true}},
	}

	store := &memStore{}
	eng, _ := newTestEngine(t, &staticResolver{residents: residents}, store)

	var wg sync.WaitGroup
	alerted := make([]bool, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := eng.HandleReading(context.Background(), models.NewReading(20, "Cupang Proper"))
			if err != nil {
				t.Errorf("HandleReading returned error: %v", err)
				return
			}
			alerted[i] = result.Alerted
		}(i)
	}
	wg.Wait()

	// Exactly one of the two racing readings ran a fan-out
	assert.Len(t, store.alerts, 1)
	assert.Len(t, store.deliveries, 1)
	assert.NotEqual(t, alerted[0], alerted[1])
}

func TestHandleReading_InvalidReadingRejected(t *testing.T) {
	store := &memStore{}
	eng, _ := newTestEngine(t, &staticResolver{}, store)

	_, err := eng.HandleReading(context.Background(), &models.Reading{Level: 10, Location: "   "})

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrEmptyLocation)
	assert.Empty(t, store.readings)
}
