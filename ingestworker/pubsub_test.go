package ingestworker

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"bitbucket.org/mmdatafocus/invoices_backend/config"
)

func TestPushEnvelopeDecode(t *testing.T) {
	payload := `{"document_id":42,"business_id":"biz-1","bucket":"docs","object_name":"invoices/biz-1/a.pdf","content_type":"application/pdf"}`
	raw := `{"message":{"data":"` + base64.StdEncoding.EncodeToString([]byte(payload)) + `","messageId":"m-1"},"subscription":"projects/p/subscriptions/s"}`

	var envelope PubSubPushEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}

	var msg config.DocumentIngestMessage
	if err := json.Unmarshal(envelope.Message.Data, &msg); err != nil {
		t.Fatalf("unmarshal message data: %v", err)
	}
	if msg.DocumentId != 42 {
		t.Errorf("DocumentId = %d, want 42", msg.DocumentId)
	}
	if msg.BusinessId != "biz-1" {
		t.Errorf("BusinessId = %q, want biz-1", msg.BusinessId)
	}
	if msg.ObjectName != "invoices/biz-1/a.pdf" {
		t.Errorf("ObjectName = %q", msg.ObjectName)
	}
}

func TestEnvBoolDefault(t *testing.T) {
	t.Setenv("INGEST_FLAG_TEST", "")
	if !envBoolDefault("INGEST_FLAG_TEST", true) {
		t.Error("empty value should fall back to default")
	}
	t.Setenv("INGEST_FLAG_TEST", "off")
	if envBoolDefault("INGEST_FLAG_TEST", true) {
		t.Error("off should read as false")
	}
	t.Setenv("INGEST_FLAG_TEST", "YES")
	if !envBoolDefault("INGEST_FLAG_TEST", false) {
		t.Error("YES should read as true")
	}
}
