package tokenmetadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/x402-foundation/x402-interceptor/mechanisms/evm"
)

// DefaultBaseURL is the default URL for the token metadata API
const DefaultBaseURL = "https://tokens.anyspend.com"

// DefaultTimeout is the default HTTP client timeout
const DefaultTimeout = 10 * time.Second

// ErrTokenNotFound is returned when the service has no record of the token
var ErrTokenNotFound = errors.New("token not found")

// TokenMetadata represents the response from the token metadata API
type TokenMetadata struct {
	ChainID         int    `json:"chainId"`
	TokenAddress    string `json:"tokenAddress"`
	Name            string `json:"name"`
	Symbol          string `json:"symbol"`
	Decimals        int    `json:"decimals"`
	LogoURL         string `json:"logoUrl"`
	SupportsEip2612 bool   `json:"supportsEip2612"`
	SupportsEip3009 bool   `json:"supportsEip3009"`
	Version         string `json:"version,omitempty"`
}

// Config contains configuration for the token metadata client
type Config struct {
	// BaseURL defaults to DefaultBaseURL
	BaseURL string
	// Timeout defaults to DefaultTimeout
	Timeout time.Duration
	// HTTPClient overrides the client built from Timeout
	HTTPClient *http.Client
}

// Client queries a token capability service so strategies can tell up front
// whether a token implements EIP-2612 or EIP-3009.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new token metadata client
func NewClient(config Config) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

func chainIDToChainName(chainID int64) string {
	switch chainID {
	case 1:
		return "ethereum"
	case 10:
		return "optimism"
	case 56:
		return "bsc"
	case 137:
		return "polygon"
	case 2741:
		return "abstract"
	case 8333:
		return "b3"
	case 8453:
		return "base"
	case 84532:
		return "base-sepolia"
	case 42161:
		return "arbitrum"
	case 43114:
		return "avalanche"
	default:
		return ""
	}
}

// GetMetadata fetches token metadata for a CAIP-2 or legacy network name
func (c *Client) GetMetadata(ctx context.Context, network string, tokenAddress string) (*TokenMetadata, error) {
	chainID, err := evm.GetEvmChainId(network)
	if err != nil {
		return nil, err
	}
	return c.GetMetadataByChainID(ctx, chainID.Int64(), tokenAddress)
}

// GetMetadataByChainID fetches token metadata by chain ID and token address
func (c *Client) GetMetadataByChainID(ctx context.Context, chainID int64, tokenAddress string) (*TokenMetadata, error) {
	chainName := chainIDToChainName(chainID)
	if chainName == "" {
		return nil, fmt.Errorf("unsupported chain ID: %d", chainID)
	}
	return c.fetchMetadata(ctx, chainName, tokenAddress)
}

// SupportsEIP2612 reports whether the token accepts EIP-2612 permits
func (c *Client) SupportsEIP2612(ctx context.Context, network string, tokenAddress string) (bool, error) {
	metadata, err := c.GetMetadata(ctx, network, tokenAddress)
	if err != nil {
		return false, err
	}
	return metadata.SupportsEip2612, nil
}

func (c *Client) fetchMetadata(ctx context.Context, chainName string, tokenAddress string) (*TokenMetadata, error) {
	url := fmt.Sprintf("%s/metadata/%s/%s", c.baseURL, chainName, strings.ToLower(tokenAddress))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch token metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s on %s", ErrTokenNotFound, tokenAddress, chainName)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token metadata API returned status %d", resp.StatusCode)
	}

	var metadata TokenMetadata
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode token metadata: %w", err)
	}

	// Tokens implementing EIP-3009/EIP-2612 are almost always version "2"
	if metadata.Version == "" {
		metadata.Version = "2"
	}

	return &metadata, nil
}
