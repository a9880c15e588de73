package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appRxn "github.com/turtacn/ARChemistry/internal/application/reaction"
	"github.com/turtacn/ARChemistry/internal/domain/graph"
	domainRxn "github.com/turtacn/ARChemistry/internal/domain/reaction"
	"github.com/turtacn/ARChemistry/internal/rendering"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockService struct {
	mock.Mock
}

func (m *MockService) Reagents(ctx context.Context) []domainRxn.Reagent {
	return m.Called(ctx).Get(0).([]domainRxn.Reagent)
}

func (m *MockService) React(ctx context.Context, in *appRxn.ReactInput) (*appRxn.ReactResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*appRxn.ReactResult)
	return res, args.Error(1)
}

func (m *MockService) ProcessImage(ctx context.Context, in *appRxn.ProcessImageInput) (*appRxn.ReactResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*appRxn.ReactResult)
	return res, args.Error(1)
}

func (m *MockService) LoadGraph(ctx context.Context, key string) (*graph.MolecularGraph, error) {
	args := m.Called(ctx, key)
	g, _ := args.Get(0).(*graph.MolecularGraph)
	return g, args.Error(1)
}

func (m *MockService) ListGraphs(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	keys, _ := args.Get(0).([]string)
	return keys, args.Error(1)
}

func (m *MockService) DeleteGraph(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockService) Scene(ctx context.Context, key string, opts rendering.Options) (*rendering.Scene, error) {
	args := m.Called(ctx, key, opts)
	s, _ := args.Get(0).(*rendering.Scene)
	return s, args.Error(1)
}

// doRequest serves req through r and returns the recorder.
func doRequest(r http.Handler, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

// ethene is C=C with four implicit hydrogens.
func ethene() *graph.MolecularGraph {
	g := graph.New()
	c1 := g.AddVertex(graph.NewAtom("C", 0, 0, -0.5, 0, 0))
	c2 := g.AddVertex(graph.NewAtom("C", 50, 0, 0.5, 0, 0))
	g.MustAddEdge(c1, c2, graph.OrderDouble)
	g.AddImplicitHydrogens()
	return g
}

func doRequestWithHeader(r http.Handler, method, path string, body io.Reader, key, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(key, value)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
