package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	vault "github.com/hashicorp/vault/api"
	"google.golang.org/api/option"
)

// decodePayload treats JSON objects as key/value maps and anything else as
// a single "value" entry.
func decodePayload(raw []byte) map[string]string {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		out := make(map[string]string, len(obj))
		for k, v := range obj {
			out[k] = fmt.Sprint(v)
		}
		return out
	}
	return map[string]string{"value": strings.TrimSpace(string(raw))}
}

// ========================================
// HashiCorp Vault (KV v2)
// ========================================

type vaultProvider struct {
	client *vault.Client
}

func newVaultProvider(address, token string) (provider, error) {
	if address == "" || token == "" {
		return nil, errors.New("secrets: vault requires VAULT_ADDR and VAULT_TOKEN")
	}
	cfg := vault.DefaultConfig()
	cfg.Address = address

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("secrets: failed to create vault client: %w", err)
	}
	client.SetToken(token)
	return &vaultProvider{client: client}, nil
}

func (v *vaultProvider) Fetch(ctx context.Context, ref Reference) (map[string]string, error) {
	mount := ref.Mount
	if mount == "" {
		mount = "secret"
	}
	kv := v.client.KVv2(mount)

	var (
		s   *vault.KVSecret
		err error
	)
	if ref.Version != "" {
		version, convErr := strconv.Atoi(ref.Version)
		if convErr != nil {
			return nil, fmt.Errorf("secrets: invalid vault version %q: %w", ref.Version, convErr)
		}
		s, err = kv.GetVersion(ctx, ref.Path, version)
	} else {
		s, err = kv.Get(ctx, ref.Path)
	}
	if err != nil {
		var respErr *vault.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("secrets: vault path %s not found", ref.Path)
		}
		return nil, fmt.Errorf("secrets: vault fetch failed for %s: %w", ref.Path, err)
	}

	out := make(map[string]string, len(s.Data))
	for k, val := range s.Data {
		out[k] = fmt.Sprint(val)
	}
	return out, nil
}

func (v *vaultProvider) Close() error { return nil }

// ========================================
// AWS Secrets Manager
// ========================================

type awsProvider struct {
	client *secretsmanager.Client
}

// newAWSProvider uses static keys when both are set, otherwise the default
// credential chain
func newAWSProvider(ctx context.Context, region, accessKeyID, secretAccessKey string) (provider, error) {
	if region == "" {
		return nil, errors.New("secrets: aws requires AWS_REGION")
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("secrets: failed to load aws config: %w", err)
	}
	return &awsProvider{client: secretsmanager.NewFromConfig(cfg)}, nil
}

func (a *awsProvider) Fetch(ctx context.Context, ref Reference) (map[string]string, error) {
	input := &secretsmanager.GetSecretValueInput{SecretId: aws.String(ref.Path)}
	if ref.Version != "" {
		input.VersionId = aws.String(ref.Version)
	}

	out, err := a.client.GetSecretValue(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("secrets: aws fetch failed for %s: %w", ref.Path, err)
	}
	if out.SecretString != nil {
		return decodePayload([]byte(*out.SecretString)), nil
	}
	return decodePayload(out.SecretBinary), nil
}

func (a *awsProvider) Close() error { return nil }

// ========================================
// Google Secret Manager
// ========================================

type gcpProvider struct {
	client  *secretmanager.Client
	project string
}

func newGCPProvider(ctx context.Context, project, credsFile string) (provider, error) {
	if project == "" {
		return nil, errors.New("secrets: gcp requires GCP_PROJECT_ID")
	}
	var opts []option.ClientOption
	if credsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credsFile))
	}
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("secrets: failed to create gcp client: %w", err)
	}
	return &gcpProvider{client: client, project: project}, nil
}

func (g *gcpProvider) Fetch(ctx context.Context, ref Reference) (map[string]string, error) {
	version := ref.Version
	if version == "" {
		version = "latest"
	}
	name := ref.Path
	if !strings.HasPrefix(name, "projects/") {
		name = fmt.Sprintf("projects/%s/secrets/%s/versions/%s", g.project, ref.Path, version)
	}

	resp, err := g.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return nil, fmt.Errorf("secrets: gcp fetch failed for %s: %w", ref.Path, err)
	}
	if resp.GetPayload() == nil {
		return map[string]string{}, nil
	}
	return decodePayload(resp.GetPayload().GetData()), nil
}

func (g *gcpProvider) Close() error { return g.client.Close() }

// ========================================
// Mounted files (Kubernetes / Docker secrets)
// ========================================

type fileProvider struct {
	base string
}

func newFileProvider(base string) (provider, error) {
	if base == "" {
		base = "/var/run/secrets"
	}
	info, err := os.Stat(base)
	if err != nil {
		return nil, fmt.Errorf("secrets: base path %s not accessible: %w", base, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("secrets: base path %s is not a directory", base)
	}
	return &fileProvider{base: base}, nil
}

func (f *fileProvider) Fetch(_ context.Context, ref Reference) (map[string]string, error) {
	target := filepath.Join(f.base, filepath.Clean("/"+ref.Path))
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("secrets: %s not found: %w", target, err)
	}

	if !info.IsDir() {
		content, err := os.ReadFile(target)
		if err != nil {
			return nil, err
		}
		return decodePayload(content), nil
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		content, err := os.ReadFile(filepath.Join(target, e.Name()))
		if err != nil {
			return nil, err
		}
		out[e.Name()] = strings.TrimSpace(string(content))
	}
	return out, nil
}

func (f *fileProvider) Close() error { return nil }
