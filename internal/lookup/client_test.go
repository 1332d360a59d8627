package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomhuang/CepLookup/internal/address"
	"github.com/thomhuang/CepLookup/internal/postalcode"
)

const seBody = `{
  "cep": "01001-000",
  "logradouro": "Praça da Sé",
  "complemento": "lado ímpar",
  "bairro": "Sé",
  "localidade": "São Paulo",
  "uf": "SP",
  "ibge": "3550308",
  "ddd": "11"
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *logtest.Hook) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger, hook := logtest.NewNullLogger()
	return New(srv.URL, WithLogger(logger)), hook
}

func TestLookupReturnsRecord(t *testing.T) {
	var path string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(seBody))
	})

	rec, err := client.Lookup(context.Background(), "01001000")
	require.NoError(t, err)
	assert.Equal(t, "/ws/01001000/json/", path)
	assert.Equal(t, address.Record{
		PostalCode:   "01001-000",
		Street:       "Praça da Sé",
		Complement:   "lado ímpar",
		Neighborhood: "Sé",
		City:         "São Paulo",
		StateCode:    "SP",
		AreaCode:     "11",
	}, rec)
}

func TestLookupKeepsEmptyOptionalFields(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cep":"69900-000","logradouro":"","complemento":"","bairro":"","localidade":"Rio Branco","uf":"AC","ddd":"68"}`))
	})

	rec, err := client.Lookup(context.Background(), "69900000")
	require.NoError(t, err)
	assert.Equal(t, "Rio Branco", rec.City)
	assert.Empty(t, rec.Street)
	assert.Empty(t, rec.Neighborhood)
}

func TestLookupNotFound(t *testing.T) {
	for name, body := range map[string]string{
		"bool":   `{"erro": true}`,
		"string": `{"erro": "true"}`,
	} {
		t.Run(name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			_, err := client.Lookup(context.Background(), "99999999")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.NotErrorIs(t, err, ErrNetwork)
		})
	}
}

func TestLookupFalseErroFlagIsNotNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cep":"01001-000","localidade":"São Paulo","uf":"SP","erro":false}`))
	})
	rec, err := client.Lookup(context.Background(), "01001000")
	require.NoError(t, err)
	assert.Equal(t, "01001-000", rec.PostalCode)
}

func TestLookupBadStatusIsNetworkError(t *testing.T) {
	client, hook := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "<html>bad request</html>", http.StatusBadRequest)
	})
	_, err := client.Lookup(context.Background(), "01001000")
	assert.ErrorIs(t, err, ErrNetwork)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestLookupMalformedBodyIsNetworkError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	_, err := client.Lookup(context.Background(), "01001000")
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestLookupTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	logger, _ := logtest.NewNullLogger()
	_, err := New(url, WithLogger(logger)).Lookup(context.Background(), "01001000")
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestLookupRejectsNonCanonicalCode(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})
	for _, code := range []string{"01001-000", "123", ""} {
		_, err := client.Lookup(context.Background(), code)
		assert.ErrorIs(t, err, postalcode.ErrInvalidFormat)
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestLookupMakesSingleAttempt(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := client.Lookup(context.Background(), "01001000")
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestWithTimeout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(seBody))
	})
	WithTimeout(20 * time.Millisecond)(client)

	_, err := client.Lookup(context.Background(), "01001000")
	assert.ErrorIs(t, err, ErrNetwork)
}

func TestNewDefaultsBaseURL(t *testing.T) {
	assert.Equal(t, "https://viacep.com.br/ws/01001000/json/", New("").URL("01001000"))
	assert.Equal(t, "http://example.test/ws/01001000/json/", New("http://example.test/").URL("01001000"))
}
