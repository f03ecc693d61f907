package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/clock"
	appErrors "github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/errors"
	"github.com/mawebyasmu/jurnal-aliyah-sub000/pkg/events"
)

type stubSettingsRepo struct {
	values map[string][]byte
}

func newStubSettingsRepo() *stubSettingsRepo {
	return &stubSettingsRepo{values: map[string][]byte{}}
}

func (r *stubSettingsRepo) Get(ctx context.Context, key string, dest interface{}) error {
	data, ok := r.values[key]
	if !ok {
		return sql.ErrNoRows
	}
	return json.Unmarshal(data, dest)
}

func (r *stubSettingsRepo) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.values[key] = data
	return nil
}

func TestSettingsAttendanceFallsBackToDefaults(t *testing.T) {
	defaults := defaultTestSettings(t)
	svc := NewSettingsService(newStubSettingsRepo(), nil, nil, zap.NewNop(), defaults)

	settings, err := svc.Attendance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, defaults.Zone.RadiusMeters, settings.Zone.RadiusMeters)
	assert.Equal(t, "Asia/Jakarta", settings.Timezone)
}

func TestSettingsUpdateAndReadBack(t *testing.T) {
	repo := newStubSettingsRepo()
	bus := events.NewBus(zap.NewNop())
	var published int
	bus.Subscribe(events.TopicSettingsUpdated, func(events.Event) { published++ })
	svc := NewSettingsService(repo, nil, bus, zap.NewNop(), defaultTestSettings(t))

	updated := defaultTestSettings(t)
	updated.Zone.RadiusMeters = 250
	late, _ := clock.ParseTimeOfDay("07:30")
	end, _ := clock.ParseTimeOfDay("16:00")
	updated.Window.LateThreshold = late
	updated.Window.EndOfDay = end

	_, err := svc.UpdateAttendance(context.Background(), updated)
	require.NoError(t, err)
	assert.Equal(t, 1, published)

	settings, err := svc.Attendance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 250.0, settings.Zone.RadiusMeters)
	assert.Equal(t, "07:30", settings.Window.LateThreshold.String())
}

func TestSettingsUpdateRejectsBadWindow(t *testing.T) {
	svc := NewSettingsService(newStubSettingsRepo(), nil, nil, zap.NewNop(), defaultTestSettings(t))

	bad := defaultTestSettings(t)
	start, _ := clock.ParseTimeOfDay("08:00")
	late, _ := clock.ParseTimeOfDay("07:00")
	bad.Window.StartOfDay = start
	bad.Window.LateThreshold = late

	_, err := svc.UpdateAttendance(context.Background(), bad)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSettingsUpdateRejectsBadZone(t *testing.T) {
	svc := NewSettingsService(newStubSettingsRepo(), nil, nil, zap.NewNop(), defaultTestSettings(t))

	bad := defaultTestSettings(t)
	bad.Zone.RadiusMeters = -5

	_, err := svc.UpdateAttendance(context.Background(), bad)
	require.Error(t, err)
}

func TestSettingsUpdateDefaultsTimezone(t *testing.T) {
	repo := newStubSettingsRepo()
	svc := NewSettingsService(repo, nil, nil, zap.NewNop(), defaultTestSettings(t))

	updated := defaultTestSettings(t)
	updated.Timezone = ""
	settings, err := svc.UpdateAttendance(context.Background(), updated)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Jakarta", settings.Timezone)
}
