package viacep

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/datakit/internal/faults"
	"github.com/mrlokans/datakit/internal/httpclient"
)

func testClient(baseURL string) *Client {
	return NewClient(httpclient.New(httpclient.Config{
		BaseURL:    baseURL,
		Timeout:    2 * time.Second,
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	}))
}

func TestLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/01001000/json/", r.URL.Path)
		w.Write([]byte(`{
			"cep": "01001-000",
			"logradouro": "Praça da Sé",
			"complemento": "lado ímpar",
			"bairro": "Sé",
			"localidade": "São Paulo",
			"uf": "SP"
		}`))
	}))
	defer server.Close()

	env, err := testClient(server.URL).Lookup(context.Background(), "01001-000")
	require.NoError(t, err)
	require.True(t, env.Successful())
	require.NotNil(t, env.Value)
	assert.Equal(t, "Praça da Sé", env.Value.Street)
	assert.Equal(t, "São Paulo", env.Value.City)
	assert.Equal(t, "SP", env.Value.State)
}

func TestLookup_SoftMissBecomesNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// ViaCEP answers 200 for well-formed but unassigned codes.
		w.Write([]byte(`{"erro": true}`))
	}))
	defer server.Close()

	env, err := testClient(server.URL).Lookup(context.Background(), "99999-999")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, env.StatusCode)
	assert.False(t, env.Successful())
	assert.Nil(t, env.Value)
	assert.Contains(t, env.Message, "99999-999")
}

func TestLookup_InvalidCEP(t *testing.T) {
	for _, cep := range []string{"", "abc", "1234", "123456789", "12345-67"} {
		_, err := testClient("http://localhost").Lookup(context.Background(), cep)
		require.Error(t, err, "CEP %q must be rejected", cep)

		var fe *faults.Error
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, faults.KindValidationError, fe.Kind)
	}
}

func TestToEntity(t *testing.T) {
	entity := ToEntity(AddressDTO{
		CEP:      "01001-000",
		Street:   "Praça da Sé",
		District: "Sé",
		City:     "São Paulo",
		State:    "SP",
	})

	assert.Equal(t, "01001000", entity.CEP, "stored CEP must be normalized")
	assert.Equal(t, "Praça da Sé", entity.Street)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "01001000", Normalize("01001-000"))
	assert.Equal(t, "01001000", Normalize(" 01001000 "))
}
