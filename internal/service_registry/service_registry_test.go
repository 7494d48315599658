package service_registry

import (
	"errors"
	"testing"

	"github.com/benmeehan/fleet-locator/internal/mocks"
	"github.com/benmeehan/fleet-locator/internal/store"
	"github.com/benmeehan/fleet-locator/internal/utils"
	"github.com/benmeehan/fleet-locator/pkg/location"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	name     string
	startErr error
	stopErr  error
	log      *[]string
}

func (f *fakeService) Start() error {
	*f.log = append(*f.log, "start "+f.name)
	return f.startErr
}

func (f *fakeService) Stop() error {
	*f.log = append(*f.log, "stop "+f.name)
	return f.stopErr
}

func newRegistry() *ServiceRegistry {
	return NewServiceRegistry(new(mocks.MQTTClient), store.New(), location.NewResolver(zerolog.Nop()), nil, nil, zerolog.Nop())
}

func TestRegisterServices_Order(t *testing.T) {
	cfg := &utils.Config{}
	cfg.Services.Ingest.Enabled = true
	cfg.Services.Location.Enabled = true
	cfg.Services.Location.Workers = 1

	sr := newRegistry()
	require.NoError(t, sr.RegisterServices(cfg))

	assert.Equal(t, []string{"ingest", "location"}, sr.Names())
	_, ok := sr.Service("gps")
	assert.False(t, ok)
}

func TestRegisterService_Duplicate(t *testing.T) {
	var log []string
	sr := newRegistry()
	sr.RegisterService("a", &fakeService{name: "a", log: &log})
	sr.RegisterService("a", &fakeService{name: "other", log: &log})

	assert.Equal(t, []string{"a"}, sr.Names())
	require.NoError(t, sr.StartServices())
	assert.Equal(t, []string{"start a"}, log)
}

func TestStartServices_RollsBackOnFailure(t *testing.T) {
	var log []string
	sr := newRegistry()
	sr.RegisterService("a", &fakeService{name: "a", log: &log})
	sr.RegisterService("b", &fakeService{name: "b", log: &log})
	sr.RegisterService("c", &fakeService{name: "c", startErr: errors.New("boom"), log: &log})

	err := sr.StartServices()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start c")
	assert.Equal(t, []string{"start a", "start b", "start c", "stop b", "stop a"}, log)
}

func TestStopServices_ReverseOrder(t *testing.T) {
	var log []string
	sr := newRegistry()
	sr.RegisterService("a", &fakeService{name: "a", log: &log})
	sr.RegisterService("b", &fakeService{name: "b", stopErr: errors.New("stuck"), log: &log})

	require.NoError(t, sr.StartServices())
	err := sr.StopServices()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stop b")
	assert.Equal(t, []string{"start a", "start b", "stop b", "stop a"}, log)
}
