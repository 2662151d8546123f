package x402

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Client holds the configured authorization strategies and creates payment payloads.
// It is used by applications that make payments (have wallets/signers).
type Client struct {
	mu sync.RWMutex

	config Config

	// network pattern -> authorization type -> strategy
	strategies map[Network]map[AuthorizationType]AuthorizationStrategy

	requirementsSelector PaymentRequirementsSelector
	policies             []PaymentPolicy

	beforeHooks  []BeforePaymentCreationHook
	afterHooks   []AfterPaymentCreationHook
	failureHooks []OnPaymentCreationFailureHook
}

// PaymentRequirementsSelector chooses which payment option to use.
// It only ever sees candidates the client can pay, in the server's order, and never an empty slice.
type PaymentRequirementsSelector func(version int, requirements []PaymentRequirements) PaymentRequirements

// ClientOption configures the client
type ClientOption func(*Client)

// WithPaymentSelector sets a custom payment requirements selector
func WithPaymentSelector(selector PaymentRequirementsSelector) ClientOption {
	return func(c *Client) {
		if selector != nil {
			c.requirementsSelector = selector
		}
	}
}

// WithPolicy appends a policy that filters candidate requirements before selection
func WithPolicy(policy PaymentPolicy) ClientOption {
	return func(c *Client) {
		c.policies = append(c.policies, policy)
	}
}

// WithStrategy registers a strategy for a network pattern at creation time
func WithStrategy(network Network, strategy AuthorizationStrategy) ClientOption {
	return func(c *Client) {
		c.registerStrategy(network, strategy)
	}
}

// NewClient validates config and creates a payment client
func NewClient(config Config, opts ...ClientOption) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:               config.WithDefaults(),
		strategies:           make(map[Network]map[AuthorizationType]AuthorizationStrategy),
		requirementsSelector: defaultPaymentSelector,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// defaultPaymentSelector keeps the server's preference order and takes the first candidate
func defaultPaymentSelector(version int, requirements []PaymentRequirements) PaymentRequirements {
	return requirements[0]
}

// Config returns the client's configuration with defaults applied
func (c *Client) Config() Config {
	return c.config
}

// AuthorizationType returns the configured authorization type
func (c *Client) AuthorizationType() AuthorizationType {
	return c.config.AuthorizationType
}

// RegisterStrategy registers a strategy for a network pattern such as "eip155:8453" or "eip155:*"
func (c *Client) RegisterStrategy(network Network, strategy AuthorizationStrategy) *Client {
	return c.registerStrategy(network, strategy)
}

func (c *Client) registerStrategy(network Network, strategy AuthorizationStrategy) *Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.strategies[network] == nil {
		c.strategies[network] = make(map[AuthorizationType]AuthorizationStrategy)
	}
	c.strategies[network][strategy.Type()] = strategy

	return c
}

// strategyFor finds the configured strategy for a network; caller holds c.mu
func (c *Client) strategyFor(network Network) AuthorizationStrategy {
	return findByNetworkAndType(c.strategies, c.config.AuthorizationType, network)
}

// SelectPaymentRequirements chooses exactly one requirement to pay.
// Candidates must accept the configured authorization type on a network with a
// registered strategy; policies then filter them and the selector picks one.
func (c *Client) SelectPaymentRequirements(version int, requirements []PaymentRequirements) (PaymentRequirements, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var supported []PaymentRequirements
	for _, req := range requirements {
		if req.AuthorizationType() != c.config.AuthorizationType {
			continue
		}
		if c.strategyFor(req.Network) == nil {
			continue
		}
		supported = append(supported, req)
	}

	for _, policy := range c.policies {
		if len(supported) == 0 {
			break
		}
		supported = policy(version, supported)
	}

	if len(supported) == 0 {
		return PaymentRequirements{}, &PaymentError{
			Code:    ErrCodeUnsupportedScheme,
			Message: "no supported payment requirements available",
			Details: map[string]interface{}{
				"version":           version,
				"authorizationType": string(c.config.AuthorizationType),
				"offered":           len(requirements),
			},
			Err: ErrNoMatchingRequirements,
		}
	}

	return c.requirementsSelector(version, supported), nil
}

// CanPay checks if the client can pay with any of the given requirements
func (c *Client) CanPay(version int, requirements []PaymentRequirements) bool {
	_, err := c.SelectPaymentRequirements(version, requirements)
	return err == nil
}

// CreatePaymentPayload signs a payment for the selected requirements.
// For v2 the payload carries accepted, resource, and extensions; for v1 the
// scheme and network move to the top level.
func (c *Client) CreatePaymentPayload(ctx context.Context, version int, requirements PaymentRequirements, resource *ResourceInfo, extensions map[string]interface{}) (PaymentPayload, error) {
	if err := ValidatePaymentRequirements(requirements); err != nil {
		return PaymentPayload{}, fmt.Errorf("invalid payment requirements: %w", err)
	}

	c.mu.RLock()
	strategy := c.strategyFor(requirements.Network)
	beforeHooks := c.beforeHooks
	afterHooks := c.afterHooks
	failureHooks := c.failureHooks
	c.mu.RUnlock()

	if strategy == nil {
		return PaymentPayload{}, &PaymentError{
			Code:    ErrCodeUnsupportedNetwork,
			Message: fmt.Sprintf("no %s strategy registered for network %s", c.config.AuthorizationType, requirements.Network),
		}
	}

	hookCtx := PaymentCreationContext{
		Ctx:               ctx,
		Version:           version,
		AuthorizationType: strategy.Type(),
		Requirements:      requirements,
		Timestamp:         time.Now(),
	}

	for _, hook := range beforeHooks {
		result, err := hook(hookCtx)
		if err != nil {
			return PaymentPayload{}, fmt.Errorf("before payment hook failed: %w", err)
		}
		if result != nil && result.Abort {
			return PaymentPayload{}, fmt.Errorf("%w: %s", ErrPaymentAborted, result.Reason)
		}
	}

	start := time.Now()
	partial, err := strategy.CreatePaymentPayload(ctx, version, requirements)
	if err != nil {
		failure := PaymentCreationFailureContext{
			PaymentCreationContext: hookCtx,
			Error:                  err,
			Duration:               time.Since(start),
		}
		for _, hook := range failureHooks {
			hook(failure)
		}
		return PaymentPayload{}, err
	}

	payload := PaymentPayload{
		X402Version:       partial.X402Version,
		AuthorizationType: strategy.Type(),
		Payload:           partial.Payload,
	}
	if payload.X402Version == ProtocolVersionV1 {
		payload.Scheme = requirements.Scheme
		payload.Network = requirements.Network
	} else {
		accepted := requirements
		payload.Accepted = &accepted
		payload.Resource = resource
		payload.Extensions = extensions
	}

	if err := ValidatePaymentPayload(payload); err != nil {
		return PaymentPayload{}, fmt.Errorf("invalid payment payload created: %w", err)
	}

	created := PaymentCreatedContext{
		PaymentCreationContext: hookCtx,
		Payload:                payload,
		Duration:               time.Since(start),
	}
	for _, hook := range afterHooks {
		_ = hook(created)
	}

	return payload, nil
}

// CreatePaymentForRequired selects a requirement from a 402 response and signs it
func (c *Client) CreatePaymentForRequired(ctx context.Context, required PaymentRequired) (PaymentPayload, error) {
	selected, err := c.SelectPaymentRequirements(required.X402Version, required.Accepts)
	if err != nil {
		return PaymentPayload{}, err
	}

	return c.CreatePaymentPayload(ctx, required.X402Version, selected, required.Resource, required.Extensions)
}
