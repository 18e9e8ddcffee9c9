package aws

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

func TestLoadAWSConfig_DefaultRegion(t *testing.T) {
	cfg, err := LoadAWSConfig(context.Background(), Settings{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Region != "us-east-1" {
		t.Fatalf("expected default region 'us-east-1', got %s", cfg.Region)
	}
}

func TestLoadAWSConfig_WithEndpointOverride(t *testing.T) {
	cfg, err := LoadAWSConfig(context.Background(), Settings{
		Region:           "ap-south-1",
		EndpointOverride: "http://localhost:4566",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Region != "ap-south-1" {
		t.Fatalf("region mismatch, got %s", cfg.Region)
	}
	if cfg.BaseEndpoint == nil || *cfg.BaseEndpoint != "http://localhost:4566" {
		t.Fatalf("base endpoint not applied: %v", cfg.BaseEndpoint)
	}
}

func TestNewAWSClients_UsesSettings(t *testing.T) {
	clients, err := NewAWSClients(context.Background(), Settings{EndpointOverride: "http://localhost:4566"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clients.DynamoDB == nil || clients.SQS == nil || clients.CloudWatch == nil {
		t.Fatalf("missing client: %+v", clients)
	}
	ddb, ok := clients.DynamoDB.(*dynamodb.Client)
	if !ok {
		t.Fatalf("unexpected DynamoDB client type %T", clients.DynamoDB)
	}
	if ep := ddb.Options().BaseEndpoint; ep == nil || *ep != "http://localhost:4566" {
		t.Fatalf("endpoint override not applied: %v", ep)
	}
}
