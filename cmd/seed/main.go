package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/service-desk/internal/models"
)

var errUnauthorized = errors.New("unauthorized")

// apiClient talks to the service desk API and unwraps its response envelope.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL string) *apiClient {
	return &apiClient{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s %s: %s: %w", method, path, env.Message, errUnauthorized)
	}
	if resp.StatusCode >= 300 || !env.Success {
		return fmt.Errorf("%s %s: %s (%d)", method, path, env.Message, resp.StatusCode)
	}
	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

// authenticate logs in as the seed admin, registering it first on an empty database.
func (c *apiClient) authenticate(ctx context.Context, admin models.RegisterRequest) error {
	var login models.LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login",
		models.LoginRequest{Username: admin.Username, Password: admin.Password}, &login)
	if errors.Is(err, errUnauthorized) {
		log.WithField("username", admin.Username).Info("Admin not found, registering")
		err = c.do(ctx, http.MethodPost, "/api/auth/register", admin, &login)
	}
	if err != nil {
		return err
	}
	c.token = login.Token
	return nil
}

var demoClients = []models.ClientRequest{
	{Name: "Acme Ltda", Email: "contato@acme.com.br", Phone: "+55 11 4000-1000", Document: "12.345.678/0001-90",
		Address: "Av. Paulista, 1000", City: "São Paulo", State: "SP", ZipCode: "01310-100"},
	{Name: "Padaria Central", Email: "gerencia@padariacentral.com.br", Phone: "+55 21 3000-2000", Document: "98.765.432/0001-10",
		Address: "Rua do Ouvidor, 50", City: "Rio de Janeiro", State: "RJ", ZipCode: "20040-030"},
}

var demoMaterials = []models.MaterialRequest{
	{Code: "ELE-001", Name: "Cabo flexível 2,5mm", Category: "eletrica", Unit: "m", UnitPrice: 3.9, StockQuantity: 500, MinimumStock: 100},
	{Code: "ELE-002", Name: "Disjuntor 20A", Category: "eletrica", Unit: "un", UnitPrice: 24.5, StockQuantity: 40, MinimumStock: 10},
	{Code: "GER-001", Name: "Fita isolante", Category: "geral", Unit: "un", UnitPrice: 6.0, StockQuantity: 120, MinimumStock: 20},
}

// seed creates the demo data and returns the service order it opened.
func seed(ctx context.Context, c *apiClient) (*models.ServiceOrderResponse, error) {
	clientIDs := make([]string, 0, len(demoClients))
	for _, req := range demoClients {
		var client models.Client
		if err := c.do(ctx, http.MethodPost, "/api/clients", req, &client); err != nil {
			return nil, err
		}
		clientIDs = append(clientIDs, client.ID.Hex())
		log.WithFields(log.Fields{"client_id": client.ID.Hex(), "name": client.Name}).Info("Created client")
	}

	materialIDs := make([]string, 0, len(demoMaterials))
	for _, req := range demoMaterials {
		var material models.Material
		if err := c.do(ctx, http.MethodPost, "/api/materials", req, &material); err != nil {
			return nil, err
		}
		materialIDs = append(materialIDs, material.ID.Hex())
		log.WithFields(log.Fields{"material_id": material.ID.Hex(), "name": material.Name}).Info("Created material")
	}

	estimated := 4.0
	var order models.ServiceOrderResponse
	err := c.do(ctx, http.MethodPost, "/api/service-orders", models.CreateServiceOrderRequest{
		Title:          "Troca do quadro de distribuição",
		Description:    "Substituir disjuntores antigos e refazer a fiação do quadro",
		ClientID:       clientIDs[0],
		EstimatedHours: &estimated,
		Notes:          []string{"Cliente pediu atendimento pela manhã"},
		Materials: []models.ServiceOrderMaterialInput{
			{MaterialID: materialIDs[0], Quantity: 25},
			{MaterialID: materialIDs[1], Quantity: 4},
		},
	}, &order)
	if err != nil {
		return nil, err
	}

	if err := c.do(ctx, http.MethodPost, "/api/service-orders/"+order.ID+"/materials",
		models.AddMaterialRequest{MaterialID: materialIDs[2], Quantity: 2}, &order); err != nil {
		return nil, err
	}
	status := models.StatusInProgress
	if err := c.do(ctx, http.MethodPut, "/api/service-orders/"+order.ID,
		models.UpdateServiceOrderRequest{Status: &status}, &order); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"order_number": order.OrderNumber,
		"materials":    len(order.Materials),
		"status":       order.Status,
	}).Info("Created service order")
	return &order, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	_ = godotenv.Load()
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	apiURL := getenv("API_BASE_URL", "http://localhost:8080")
	admin := models.RegisterRequest{
		Username: getenv("SEED_ADMIN_USERNAME", "admin"),
		Email:    getenv("SEED_ADMIN_EMAIL", "admin@example.com"),
		Password: getenv("SEED_ADMIN_PASSWORD", "admin12345"),
		Name:     "Administrator",
		Role:     models.RoleAdmin,
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client := newAPIClient(apiURL)
	if err := client.authenticate(ctx, admin); err != nil {
		log.WithError(err).Fatal("Failed to authenticate seed admin")
	}
	if _, err := seed(ctx, client); err != nil {
		log.WithError(err).Fatal("Seeding failed")
	}
	log.WithField("api", apiURL).Info("Seed completed")
}
