package rpcserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/yndnr/tssd/internal/core/domain"
	"github.com/yndnr/tssd/internal/telemetry/logger"
)

// Client calls a tssd daemon.
type Client struct {
	keygen   *connect.Client[KeygenRequest, KeygenResponse]
	presence *connect.Client[KeyPresenceRequest, KeyPresenceResponse]
}

// NewClient creates a client for the daemon at baseURL
// (e.g. "http://127.0.0.1:50051").
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &Client{
		keygen:   connect.NewClient[KeygenRequest, KeygenResponse](httpClient, baseURL+KeygenProcedure, opts...),
		presence: connect.NewClient[KeyPresenceRequest, KeyPresenceResponse](httpClient, baseURL+KeyPresenceProcedure, opts...),
	}
}

// Keygen requests key generation for keyUID and returns the verifying key.
func (c *Client) Keygen(ctx context.Context, keyUID string) ([]byte, error) {
	req := connect.NewRequest(&KeygenRequest{KeyUID: keyUID})
	setRequestID(ctx, req.Header())
	resp, err := c.keygen.CallUnary(ctx, req)
	if err != nil {
		return nil, FromConnectError(err)
	}
	return resp.Msg.PubKey, nil
}

// KeyPresence reports whether a key has been committed for keyUID.
func (c *Client) KeyPresence(ctx context.Context, keyUID string) (domain.KeyPresence, error) {
	req := connect.NewRequest(&KeyPresenceRequest{KeyUID: keyUID})
	setRequestID(ctx, req.Header())
	resp, err := c.presence.CallUnary(ctx, req)
	if err != nil {
		return domain.KeyAbsent, FromConnectError(err)
	}
	if resp.Msg.Presence == domain.KeyPresent.String() {
		return domain.KeyPresent, nil
	}
	return domain.KeyAbsent, nil
}

func setRequestID(ctx context.Context, h http.Header) {
	if id := logger.RequestIDFromContext(ctx); id != "" {
		h.Set(HeaderRequestID, id)
	}
}

var errorsByCode = map[string]*domain.DomainError{}

func init() {
	for _, e := range []*domain.DomainError{
		domain.ErrUninitialized, domain.ErrSeedInvalid,
		domain.ErrDerivation, domain.ErrSerialization,
		domain.ErrKeyNotFound, domain.ErrDuplicateKey, domain.ErrInvalidReservation,
		domain.ErrInternal, domain.ErrStorage, domain.ErrRateLimited,
		domain.ErrParse, domain.ErrInvalidArgument,
	} {
		errorsByCode[e.Code] = e
	}
}

// FromConnectError restores the domain error carried in the error
// metadata, so callers can use errors.Is against domain sentinels.
// Errors without a known code are returned unchanged.
func FromConnectError(err error) error {
	var ce *connect.Error
	if !errors.As(err, &ce) {
		return err
	}
	sentinel, ok := errorsByCode[ce.Meta().Get(HeaderErrorCode)]
	if !ok {
		return err
	}
	return sentinel.Wrap(err)
}
