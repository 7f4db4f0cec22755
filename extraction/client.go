package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"cloud.google.com/go/vertexai/genai"
	"github.com/disintegration/imaging"

	"bitbucket.org/mmdatafocus/invoices_backend/config"
	"bitbucket.org/mmdatafocus/invoices_backend/models"
)

// images larger than this are downscaled before being sent to the model
const maxImageDimension = 4096

// Client pairs a Vertex AI generative model with a Cloud Storage reader. One
// instance is shared by all workers.
type Client struct {
	extractorModel *genai.GenerativeModel
	storageClient  *storage.Client
	baseClient     *genai.Client
	modelName      string
}

func NewClient(ctx context.Context) (*Client, error) {
	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		projectID = os.Getenv("GCP_PROJECT")
	}
	if projectID == "" {
		return nil, errors.New("GOOGLE_CLOUD_PROJECT is required")
	}
	region := os.Getenv("VERTEX_AI_REGION")
	if region == "" {
		region = "us-central1"
	}
	modelName := os.Getenv("EXTRACTION_MODEL")
	if modelName == "" {
		modelName = "gemini-1.5-pro"
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := baseClient.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(extractorSystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		// Force JSON output; low temperature for deterministic parsing.
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.1),
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		_ = baseClient.Close()
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}

	return &Client{
		extractorModel: model,
		storageClient:  storageClient,
		baseClient:     baseClient,
		modelName:      modelName,
	}, nil
}

func (c *Client) Close() error {
	if c.storageClient != nil {
		_ = c.storageClient.Close()
	}
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// Extract fetches the document bytes from Cloud Storage, runs the model, and
// decodes the structured guess. The returned document may be arbitrarily
// sparse; reconciliation must cope with whatever comes back.
func (c *Client) Extract(ctx context.Context, bucket, objectName, contentType string) (*models.ExtractedDocument, *models.ExtractionMetadata, error) {
	logger := config.GetLogger()
	started := time.Now()

	data, err := c.fetchObject(ctx, bucket, objectName)
	if err != nil {
		config.LogError(logger, "client.go", "Extract", "fetch object", objectName, err)
		return nil, nil, err
	}

	mimeType := contentType
	if strings.HasPrefix(mimeType, "image/") {
		data, mimeType, err = downscaleImage(data)
		if err != nil {
			config.LogError(logger, "client.go", "Extract", "downscale image", objectName, err)
			return nil, nil, err
		}
	}
	if mimeType == "" {
		mimeType = "application/pdf"
	}

	resp, err := c.extractorModel.GenerateContent(ctx,
		genai.Blob{MIMEType: mimeType, Data: data},
		genai.Text(extractorUserPrompt),
	)
	if err != nil {
		config.LogError(logger, "client.go", "Extract", "generate content", objectName, err)
		return nil, nil, fmt.Errorf("generate content: %w", err)
	}

	raw := responseText(resp)
	cleaned := StripMarkdownFences(raw)
	if cleaned == "" {
		return nil, nil, errors.New("model returned no content")
	}

	var doc models.ExtractedDocument
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		config.LogError(logger, "client.go", "Extract", "decode model output", objectName, err)
		return nil, nil, fmt.Errorf("decode model output: %w", err)
	}

	metadata := &models.ExtractionMetadata{
		ModelName:  c.modelName,
		WordCount:  len(strings.Fields(cleaned)),
		Confidence: extractionConfidence(&doc),
		DurationMs: time.Since(started).Milliseconds(),
	}
	doc.Metadata = metadata
	return &doc, metadata, nil
}

func (c *Client) fetchObject(ctx context.Context, bucket, objectName string) ([]byte, error) {
	reader, err := c.storageClient.Bucket(bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open gs://%s/%s: %w", bucket, objectName, err)
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// downscaleImage caps either dimension at maxImageDimension and re-encodes
// as JPEG. Oversized photos of invoices are common from mobile uploads.
func downscaleImage(data []byte) ([]byte, string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() > maxImageDimension || bounds.Dy() > maxImageDimension {
		img = imaging.Fit(img, maxImageDimension, maxImageDimension, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, "", fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

// StripMarkdownFences removes a surrounding ```json ... ``` fence when the
// model ignores the no-fences instruction.
func StripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractionConfidence is a rough signal for how much of the document the
// model could read: the share of populated key fields.
func extractionConfidence(doc *models.ExtractedDocument) float64 {
	populated := 0
	total := 4
	if doc.DocumentInfo.InvoiceNumber != "" {
		populated++
	}
	if doc.Supplier.CompanyName != "" {
		populated++
	}
	if doc.FinancialDetails.TotalAfterTax.Valid || doc.FinancialDetails.Subtotal.Valid {
		populated++
	}
	if len(doc.LineItems) > 0 {
		populated++
	}
	return float64(populated) / float64(total)
}
