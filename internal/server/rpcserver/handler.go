package rpcserver

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/yndnr/tssd/internal/core/domain"
)

// Multisig is the service surface exposed over RPC.
type Multisig interface {
	Keygen(ctx context.Context, req *domain.KeygenRequest) ([]byte, error)
	KeyPresence(ctx context.Context, keyUID string) (domain.KeyPresence, error)
}

// Handler implements the Multisig RPC handlers.
type Handler struct {
	svc    Multisig
	logger *slog.Logger
}

// NewHandler creates a new RPC handler.
func NewHandler(svc Multisig, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// Keygen handles the Keygen RPC.
func (h *Handler) Keygen(
	ctx context.Context,
	req *connect.Request[KeygenRequest],
) (*connect.Response[KeygenResponse], error) {
	vk, err := h.svc.Keygen(ctx, &domain.KeygenRequest{KeyUID: req.Msg.KeyUID})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&KeygenResponse{PubKey: vk}), nil
}

// KeyPresence handles the KeyPresence RPC.
func (h *Handler) KeyPresence(
	ctx context.Context,
	req *connect.Request[KeyPresenceRequest],
) (*connect.Response[KeyPresenceResponse], error) {
	p, err := h.svc.KeyPresence(ctx, req.Msg.KeyUID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&KeyPresenceResponse{Presence: p.String()}), nil
}

// codeFor maps a service error to its Connect status code.
func codeFor(err error) connect.Code {
	switch {
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	case errors.Is(err, domain.ErrUninitialized):
		return connect.CodeFailedPrecondition
	case errors.Is(err, domain.ErrDerivation),
		errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrSeedInvalid):
		return connect.CodeInvalidArgument
	case errors.Is(err, domain.ErrDuplicateKey):
		return connect.CodeAlreadyExists
	case errors.Is(err, domain.ErrKeyNotFound):
		return connect.CodeNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return connect.CodeResourceExhausted
	default:
		return connect.CodeInternal
	}
}

// toConnectError wraps err in a connect.Error carrying the domain code in
// the trailing metadata. Internal causes are not sent to the caller.
func toConnectError(err error) *connect.Error {
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce
	}

	code := codeFor(err)
	wire := err
	var de *domain.DomainError
	if errors.As(err, &de) && code == connect.CodeInternal {
		wire = domain.NewDomainError(de.Code, de.Message)
	}

	cerr := connect.NewError(code, wire)
	if c := domain.GetErrorCode(err); c != "" {
		cerr.Meta().Set(HeaderErrorCode, c)
	}
	return cerr
}
