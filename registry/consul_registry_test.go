package registry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	consulapi "github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAgent records the agent endpoints the registry calls.
type fakeAgent struct {
	mu           sync.Mutex
	registered   []consulapi.AgentServiceRegistration
	deregistered []string
}

func (f *fakeAgent) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/agent/self", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Config":{"NodeName":"test-node"}}`))
	})
	mux.HandleFunc("/v1/agent/service/register", func(w http.ResponseWriter, r *http.Request) {
		var reg consulapi.AgentServiceRegistration
		if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.registered = append(f.registered, reg)
		f.mu.Unlock()
	})
	mux.HandleFunc("/v1/agent/service/deregister/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.deregistered = append(f.deregistered, r.URL.Path[len("/v1/agent/service/deregister/"):])
		f.mu.Unlock()
	})
	return mux
}

func newTestRegistry(t *testing.T) (ServiceRegistry, *fakeAgent) {
	t.Helper()
	agent := &fakeAgent{}
	srv := httptest.NewServer(agent.handler())
	t.Cleanup(srv.Close)

	reg, err := NewConsulRegistry(srv.URL, zap.NewNop().Sugar())
	require.NoError(t, err)
	return reg, agent
}

func TestRegisterAndDeregister(t *testing.T) {
	reg, agent := newTestRegistry(t)

	check := CreateHTTPCheck("webguard-http-1", "127.0.0.1", 8080, "/healthz", "10s", "1s")
	err := reg.Register("webguard-http-1", "webguard-http", "127.0.0.1", 8080, []string{"http"}, check)
	require.NoError(t, err)

	require.Len(t, agent.registered, 1)
	got := agent.registered[0]
	assert.Equal(t, "webguard-http-1", got.ID)
	assert.Equal(t, "webguard-http", got.Name)
	assert.Equal(t, 8080, got.Port)
	assert.Equal(t, "http", got.Meta["protocol"])
	require.NotNil(t, got.Check)
	assert.Equal(t, "http://127.0.0.1:8080/healthz", got.Check.HTTP)

	require.NoError(t, reg.Deregister("webguard-http-1"))
	assert.Equal(t, []string{"webguard-http-1"}, agent.deregistered)
}

func TestRegisterGRPCCheck(t *testing.T) {
	reg, agent := newTestRegistry(t)

	check := CreateGRPCCheck("webguard-grpc-1", "127.0.0.1:50051", "10s", "1s", false)
	require.NoError(t, reg.Register("webguard-grpc-1", "webguard-grpc", "127.0.0.1", 50051, nil, check))

	require.Len(t, agent.registered, 1)
	assert.Equal(t, "grpc", agent.registered[0].Meta["protocol"])
	assert.Equal(t, "127.0.0.1:50051", agent.registered[0].Check.GRPC)
}

func TestNewConsulRegistryUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := NewConsulRegistry(srv.URL, zap.NewNop().Sugar())
	assert.Error(t, err)
}
