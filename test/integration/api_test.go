package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/plantevern/internal/application"
	"github.com/eugenenazirov/plantevern/internal/config"
)

type plot struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Area float64 `json:"area"`
}

type shoppingList struct {
	Items []struct {
		Pesticide struct {
			Name  string `json:"navn"`
			RegNr string `json:"reg_nr"`
		} `json:"pesticide"`
		Results struct {
			Total    float64 `json:"totalInLitersOrKg"`
			Unit     string  `json:"unitLabel"`
			Packages []struct {
				Size  int `json:"size"`
				Count int `json:"count"`
			} `json:"packagesNeeded"`
		} `json:"results"`
	} `json:"items"`
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.Config{
		Port:               ":0",
		ReadHeaderTimeout:  time.Second,
		WriteTimeout:       5 * time.Second,
		IdleTimeout:        time.Second,
		LogLevel:           "info",
		StorageDriver:      config.StorageMemory,
		FetchTimeout:       time.Second,
		BreakerFailures:    3,
		BreakerOpenTimeout: time.Second,
	}
	app, err := application.New(context.Background(), cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("application.New returned error: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })

	server := httptest.NewServer(app.Server().Handler)
	t.Cleanup(server.Close)
	return server
}

func performRequest(t *testing.T, server *httptest.Server, method, target string, payload any) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, server.URL+target, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func expect(t *testing.T, resp *http.Response, status int, dst any) {
	t.Helper()
	if resp.StatusCode != status {
		data, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected %d, got %d: %s", resp.Request.Method, resp.Request.URL.Path, status, resp.StatusCode, data)
	}
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func addTreatment(t *testing.T, server *httptest.Server, plotID, regNr string, dose float64) {
	t.Helper()
	resp := performRequest(t, server, http.MethodPost, "/api/treatments",
		map[string]any{"plotId": plotID, "regNr": regNr, "dose": dose, "doseUnit": "ml"})
	expect(t, resp, http.StatusCreated, nil)
}

func TestIntegrationFlow(t *testing.T) {
	server := newServer(t)

	expect(t, performRequest(t, server, http.MethodGet, "/api/health", nil), http.StatusOK, nil)

	var plots struct {
		Plots []plot `json:"plots"`
	}
	expect(t, performRequest(t, server, http.MethodGet, "/api/plots", nil), http.StatusOK, &plots)
	if len(plots.Plots) != 1 || plots.Plots[0].Name != "Korn" || plots.Plots[0].Area != 100 {
		t.Fatalf("expected seeded Korn plot, got %+v", plots.Plots)
	}
	korn := plots.Plots[0]

	var bygg plot
	expect(t, performRequest(t, server, http.MethodPost, "/api/plots", map[string]any{"name": "Bygg", "area": 50}), http.StatusCreated, &bygg)

	var products struct {
		Count int `json:"count"`
	}
	expect(t, performRequest(t, server, http.MethodGet, "/api/products?q=ariane", nil), http.StatusOK, &products)
	if products.Count != 1 {
		t.Fatalf("expected one search hit, got %d", products.Count)
	}

	addTreatment(t, server, korn.ID, "2017.3", 200)
	addTreatment(t, server, bygg.ID, "2017.3", 200)
	addTreatment(t, server, korn.ID, "2013.14", 75)

	var list shoppingList
	expect(t, performRequest(t, server, http.MethodGet, "/api/shopping-list", nil), http.StatusOK, &list)
	if len(list.Items) != 2 {
		t.Fatalf("expected two products, got %d", len(list.Items))
	}
	if list.Items[0].Pesticide.Name != "Ariane S" || list.Items[0].Results.Total != 30 {
		t.Fatalf("unexpected first item %+v", list.Items[0])
	}
	if list.Items[1].Pesticide.Name != "Propulse" || list.Items[1].Results.Total != 7.5 {
		t.Fatalf("unexpected second item %+v", list.Items[1])
	}

	resp := performRequest(t, server, http.MethodGet, "/api/shopping-list/text", nil)
	expect(t, resp, http.StatusOK, nil)
	text, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		"Ariane S\n- Totalt behov: 30.00 Liter\n- Anbefalt innkjøp: 1 x 20 Liter, 1 x 10 Liter\n- Brukes på:\n  - Korn (100 daa)\n  - Bygg (50 daa)",
		"Propulse\n- Totalt behov: 7.50 Liter\n- Anbefalt innkjøp: 1 x 5 Liter, 3 x 1 Liter",
	} {
		if !strings.Contains(string(text), want) {
			t.Fatalf("expected text report to contain %q, got:\n%s", want, text)
		}
	}

	expect(t, performRequest(t, server, http.MethodDelete, "/api/plots/"+bygg.ID, nil), http.StatusNoContent, nil)

	expect(t, performRequest(t, server, http.MethodGet, "/api/shopping-list", nil), http.StatusOK, &list)
	if list.Items[0].Results.Total != 20 || len(list.Items[0].Results.Packages) != 1 || list.Items[0].Results.Packages[0].Size != 20 {
		t.Fatalf("expected cascade to leave one 20 L container, got %+v", list.Items[0].Results)
	}

	resp = performRequest(t, server, http.MethodGet, "/metrics", nil)
	expect(t, resp, http.StatusOK, nil)
	metrics, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(metrics), `route="POST /api/treatments",status="201"} 3`) {
		t.Fatalf("expected treatment requests to be counted, got:\n%s", metrics)
	}
}

func TestIntegrationPack(t *testing.T) {
	server := newServer(t)

	var body struct {
		Results struct {
			Packages []struct {
				Size  int `json:"size"`
				Count int `json:"count"`
			} `json:"packagesNeeded"`
		} `json:"results"`
		TotalContainers int `json:"totalContainers"`
	}
	expect(t, performRequest(t, server, http.MethodPost, "/api/pack", map[string]any{"quantity": 19990, "doseUnit": "ml"}), http.StatusOK, &body)

	if body.TotalContainers != 7 {
		t.Fatalf("expected 10 + 5 + 5x1 containers, got %+v", body.Results.Packages)
	}
}
