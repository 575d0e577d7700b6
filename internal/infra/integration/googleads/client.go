package googleads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// TransientError marca falha retentável (rede, 5xx, rate limit).
// O worker decide retentar ou desistir olhando pra esse tipo.
type TransientError struct {
	Reason string
}

func (e *TransientError) Error() string {
	return e.Reason
}

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

type Client struct {
	apiToken        string
	baseURL         string
	conversionID    string
	conversionLabel string
	httpClient      *http.Client
}

func NewClient(apiToken, baseURL, conversionID, conversionLabel string) *Client {
	return &Client{
		apiToken:        apiToken,
		baseURL:         baseURL,
		conversionID:    conversionID,
		conversionLabel: conversionLabel,
		httpClient:      &http.Client{Timeout: 15 * time.Second},
	}
}

// UploadConversion sobe UMA conversão no modo enhanced conversions.
// O hash do email vai como userIdentifier; o click id, quando existe,
// vai junto pro match clássico.
func (c *Client) UploadConversion(ctx context.Context, input UploadInput) error {
	if c.apiToken == "" {
		log.Println("⚠️ GoogleAds: ADS_API_TOKEN não configurado")
		return errors.New("google ads não configurado")
	}

	conv := conversionAdjustment{
		ConversionAction: fmt.Sprintf("customers/%s/conversionActions/%s", c.conversionID, c.conversionLabel),
		OrderID:          input.ConversionID,
		GCLID:            input.ClickID,
		ConversionValue:  conversionValue{Label: c.conversionLabel},
	}
	if input.EmailHash != "" {
		conv.UserIdentifiers = []identifier{{HashedEmail: input.EmailHash}}
	}

	reqBody := uploadRequest{
		Conversions:    []conversionAdjustment{conv},
		PartialFailure: true,
	}

	payload, _ := json.Marshal(reqBody)
	url := fmt.Sprintf("%s/customers/%s:uploadClickConversions", c.baseURL, c.conversionID)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	c.addAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Erro de rede = retentável
		return &TransientError{Reason: fmt.Sprintf("erro de rede: %v", err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		// segue pro parse abaixo
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &TransientError{Reason: fmt.Sprintf("ads API %d: %s", resp.StatusCode, string(body))}
	default:
		// 4xx (menos 429) não melhora retentando
		return fmt.Errorf("erro ao subir conversão: %d - %s", resp.StatusCode, string(body))
	}

	var result uploadResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return err
	}

	if result.PartialFailureError != nil {
		return fmt.Errorf("partial failure: %d - %s",
			result.PartialFailureError.Code, result.PartialFailureError.Message)
	}

	log.Printf("✅ GoogleAds: Conversão %s enviada (stage=%s)", input.ConversionID, input.Stage)

	return nil
}

func (c *Client) addAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiToken))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
