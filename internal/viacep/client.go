// Package viacep is a client for the public ViaCEP postal-code API.
// API docs: https://viacep.com.br/
package viacep

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/mrlokans/datakit/internal/datasource"
	"github.com/mrlokans/datakit/internal/entities"
	"github.com/mrlokans/datakit/internal/faults"
	"github.com/mrlokans/datakit/internal/httpclient"
)

// DefaultBaseURL is the public ViaCEP endpoint.
const DefaultBaseURL = "https://viacep.com.br"

var cepPattern = regexp.MustCompile(`^\d{5}-?\d{3}$`)

// AddressDTO is the wire format of a ViaCEP lookup.
type AddressDTO struct {
	CEP        string `json:"cep"`
	Street     string `json:"logradouro"`
	Complement string `json:"complemento"`
	District   string `json:"bairro"`
	City       string `json:"localidade"`
	State      string `json:"uf"`
	Missing    bool   `json:"erro"`
}

// ToEntity converts the wire format into the stored entity.
func ToEntity(dto AddressDTO) entities.Address {
	return entities.Address{
		CEP:        Normalize(dto.CEP),
		Street:     dto.Street,
		Complement: dto.Complement,
		District:   dto.District,
		City:       dto.City,
		State:      dto.State,
	}
}

// Normalize strips the separator dash from a CEP.
func Normalize(cep string) string {
	return strings.ReplaceAll(strings.TrimSpace(cep), "-", "")
}

// Client looks up Brazilian addresses by postal code.
type Client struct {
	client *httpclient.Client
}

// NewClient creates a ViaCEP client on top of the retrying HTTP client.
func NewClient(client *httpclient.Client) *Client {
	return &Client{client: client}
}

// Lookup fetches the address registered for the given CEP. ViaCEP answers
// HTTP 200 with {"erro": true} for well-formed but unassigned codes; that
// soft miss is surfaced as a 404 envelope so callers classify it as not
// found.
func (c *Client) Lookup(ctx context.Context, cep string) (datasource.Envelope[AddressDTO], error) {
	cep = strings.TrimSpace(cep)
	if !cepPattern.MatchString(cep) {
		return datasource.Envelope[AddressDTO]{}, faults.New(faults.KindValidationError, fmt.Sprintf("invalid CEP %q", cep))
	}

	env, err := httpclient.Get[AddressDTO](ctx, c.client, fmt.Sprintf("/ws/%s/json/", Normalize(cep)), nil)
	if err != nil {
		return datasource.Envelope[AddressDTO]{}, err
	}

	if env.Successful() && env.Value != nil && env.Value.Missing {
		return datasource.Envelope[AddressDTO]{
			StatusCode: http.StatusNotFound,
			Message:    fmt.Sprintf("no address found for CEP %s", cep),
		}, nil
	}
	return env, nil
}
