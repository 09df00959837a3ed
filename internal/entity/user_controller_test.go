package entity

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-chi/cors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aras-services/goframe/internal/orm/ormtest"
	"github.com/aras-services/goframe/internal/repository"
	"github.com/aras-services/goframe/internal/router"
)

func wireUserRepo(t *testing.T) (*UserRepository, *ormtest.Adapter) {
	t.Helper()
	adapter := ormtest.New()
	synth := repository.NewSynthesizer(adapter)
	repo := &UserRepository{}
	require.NoError(t, synth.Wire(repo, reflect.TypeOf(User{}), nil))
	return repo, adapter
}

func TestUserControllerCreateHashesPassword(t *testing.T) {
	repo, adapter := wireUserRepo(t)
	controller := NewUserController(repo)

	r := router.New(zap.NewNop(), nil)
	r.MustRegister(http.MethodPost, "/api/v1/users", "UserController.create", controller.Create)
	srv := httptest.NewServer(r.Build(cors.Options{}))
	t.Cleanup(srv.Close)

	body, _ := json.Marshal(map[string]string{
		"email":     "ada@example.com",
		"password":  "supersecret",
		"firstName": "Ada",
		"lastName":  "Lovelace",
	})
	resp, err := http.Post(srv.URL+"/api/v1/users", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	rows := adapter.Rows("users")
	require.Len(t, rows, 1)
	assert.Equal(t, "ada@example.com", rows[0]["email"])
	hash, _ := rows[0]["password_hash"].(string)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "supersecret", hash)
}

func TestProductControllerFindAllHonorsMaxPrice(t *testing.T) {
	adapter := ormtest.New()
	synth := repository.NewSynthesizer(adapter)
	repo := &ProductRepository{}
	require.NoError(t, synth.Wire(repo, reflect.TypeOf(Product{}), nil))

	require.NoError(t, repo.Save(context.Background(), &Product{ID: 1, SKU: "sku-1", Name: "cheap", Price: 500}))
	require.NoError(t, repo.Save(context.Background(), &Product{ID: 2, SKU: "sku-2", Name: "pricey", Price: 5000}))

	controller := NewProductController(repo)
	r := router.New(zap.NewNop(), nil)
	r.MustRegister(http.MethodGet, "/api/v1/products", "ProductController.findAll", controller.FindAll)
	srv := httptest.NewServer(r.Build(cors.Options{}))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/v1/products?maxPrice=1000")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "sku-1", envelope.Data[0]["sku"])

	respAll, err := http.Get(srv.URL + "/api/v1/products")
	require.NoError(t, err)
	defer respAll.Body.Close()

	var envelopeAll struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(respAll.Body).Decode(&envelopeAll))
	assert.Len(t, envelopeAll.Data, 2)
}
