package rpc

import (
	"context"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	engerr "github.com/Cogwheel-Validator/spectra-wallet-engine/errors"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/health"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/models"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/router"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/wallet"
)

const WalletServiceName = "spectra.wallet.v1.WalletService"

// Procedure paths, one per wallet action or view.
const (
	SendProcedure            = "/" + WalletServiceName + "/Send"
	MultiSendProcedure       = "/" + WalletServiceName + "/MultiSend"
	StakeProcedure           = "/" + WalletServiceName + "/Stake"
	UnstakeProcedure         = "/" + WalletServiceName + "/Unstake"
	UnstakeAllProcedure      = "/" + WalletServiceName + "/UnstakeAll"
	ClaimRewardsProcedure    = "/" + WalletServiceName + "/ClaimRewards"
	ClaimAndRestakeProcedure = "/" + WalletServiceName + "/ClaimAndRestake"
	SwapProcedure            = "/" + WalletServiceName + "/Swap"
	MultiSwapProcedure       = "/" + WalletServiceName + "/MultiSwap"
	SendIBCProcedure         = "/" + WalletServiceName + "/SendIBC"
	TransferProcedure        = "/" + WalletServiceName + "/Transfer"

	ResolveRouteProcedure   = "/" + WalletServiceName + "/ResolveRoute"
	GetAddressProcedure     = "/" + WalletServiceName + "/GetAddress"
	StakingProcedure        = "/" + WalletServiceName + "/GetStaking"
	ValidatorsProcedure     = "/" + WalletServiceName + "/GetValidators"
	EndpointsProcedure      = "/" + WalletServiceName + "/GetEndpoints"
	ResetEndpointsProcedure = "/" + WalletServiceName + "/ResetEndpoints"
	NotificationsProcedure  = "/" + WalletServiceName + "/GetNotifications"
)

type SendRequest struct {
	Send         models.SendObject `json:"send"`
	SimulateOnly bool              `json:"simulate_only"`
}

type MultiSendRequest struct {
	Recipients   []models.SendObject `json:"recipients"`
	SimulateOnly bool                `json:"simulate_only"`
}

type StakeRequest struct {
	Validator    string `json:"validator"`
	Amount       string `json:"amount"`
	Denom        string `json:"denom"`
	SimulateOnly bool   `json:"simulate_only"`
}

type UnstakeAllRequest struct {
	Delegations  []models.DelegationResponse `json:"delegations"`
	SimulateOnly bool                        `json:"simulate_only"`
}

type ClaimRequest struct {
	Validators []string `json:"validators"`
	// Rewards is only read by ClaimAndRestake. When empty the current
	// rewards are fetched.
	Rewards      []models.ValidatorReward `json:"rewards,omitempty"`
	SimulateOnly bool                     `json:"simulate_only"`
}

type SwapRequest struct {
	Swap         models.SwapObject `json:"swap"`
	SimulateOnly bool              `json:"simulate_only"`
}

type MultiSwapRequest struct {
	Swaps        []models.SwapObject `json:"swaps"`
	SimulateOnly bool                `json:"simulate_only"`
}

type SendIBCRequest struct {
	Transfer     models.IBCObject `json:"transfer"`
	SimulateOnly bool             `json:"simulate_only"`
}

type TransferRequest struct {
	Send         models.SendObject `json:"send"`
	TargetDenom  string            `json:"target_denom,omitempty"`
	SimulateOnly bool              `json:"simulate_only"`
}

type ResolveRouteRequest struct {
	Sender    string              `json:"sender"`
	Recipient string              `json:"recipient"`
	Level     models.NetworkLevel `json:"level"`
}

type GetAddressRequest struct {
	Prefix string `json:"prefix"`
}

type GetAddressResponse struct {
	Address string `json:"address"`
}

type StakingRequest struct {
	// Cached returns the last fetched view instead of querying the chain.
	Cached bool `json:"cached"`
}

type StakingResponse struct {
	Delegator string                       `json:"delegator"`
	Infos     []models.CombinedStakingInfo `json:"infos"`
}

type EndpointsResponse struct {
	Endpoints []health.Endpoint `json:"endpoints"`
}

type NotificationsResponse struct {
	Notifications []wallet.Notification `json:"notifications"`
}

type Empty struct{}

// Endpoints is the health view exposed over RPC.
type Endpoints interface {
	Rank() []health.Endpoint
	Reset() error
}

// Notifications returns recently finished writes, newest first.
type Notifications interface {
	Recent() []wallet.Notification
}

// WalletServer maps procedures onto the wallet engine.
type WalletServer struct {
	engine        *wallet.Engine
	resolver      wallet.Resolver
	endpoints     Endpoints
	notifications Notifications
	level         models.NetworkLevel
}

func NewWalletServer(engine *wallet.Engine, resolver wallet.Resolver, endpoints Endpoints, notifications Notifications, level models.NetworkLevel) *WalletServer {
	return &WalletServer{
		engine:        engine,
		resolver:      resolver,
		endpoints:     endpoints,
		notifications: notifications,
		level:         level,
	}
}

// register mounts every procedure on mux.
func (s *WalletServer) register(mux handlerMux, opts []connect.HandlerOption) {
	readOpts := append([]connect.HandlerOption{connect.WithIdempotency(connect.IdempotencyNoSideEffects)}, opts...)

	unary(mux, SendProcedure, func(ctx context.Context, r *SendRequest) (*models.TransactionResult, error) {
		return ptr(s.engine.Send(ctx, r.Send, r.SimulateOnly)), nil
	}, opts)
	unary(mux, MultiSendProcedure, func(ctx context.Context, r *MultiSendRequest) (*models.TransactionResult, error) {
		return ptr(s.engine.MultiSend(ctx, r.Recipients, r.SimulateOnly)), nil
	}, opts)
	unary(mux, StakeProcedure, func(ctx context.Context, r *StakeRequest) (*models.TransactionResult, error) {
		return ptr(s.engine.Stake(ctx, r.Validator, r.Amount, r.Denom, r.SimulateOnly)), nil
	}, opts)
	unary(mux, UnstakeProcedure, func(ctx context.Context, r *StakeRequest) (*models.TransactionResult, error) {
		return ptr(s.engine.Unstake(ctx, r.Validator, r.Amount, r.Denom, r.SimulateOnly)), nil
	}, opts)
	unary(mux, UnstakeAllProcedure, func(ctx context.Context, r *UnstakeAllRequest) (*models.TransactionResult, error) {
		return ptr(s.engine.UnstakeAll(ctx, r.Delegations, r.SimulateOnly)), nil
	}, opts)
	unary(mux, ClaimRewardsProcedure, func(ctx context.Context, r *ClaimRequest) (*models.TransactionResult, error) {
		return ptr(s.engine.ClaimRewards(ctx, r.Validators, r.SimulateOnly)), nil
	}, opts)
	unary(mux, ClaimAndRestakeProcedure, func(ctx context.Context, r *ClaimRequest) (*models.TransactionResult, error) {
		var rewards []models.ValidatorReward
		if len(r.Rewards) > 0 {
			rewards = r.Rewards
		}
		return ptr(s.engine.ClaimAndRestake(ctx, r.Validators, rewards, r.SimulateOnly)), nil
	}, opts)
	unary(mux, SwapProcedure, func(ctx context.Context, r *SwapRequest) (*models.TransactionResult, error) {
		return ptr(s.engine.Swap(ctx, r.Swap, r.SimulateOnly)), nil
	}, opts)
	unary(mux, MultiSwapProcedure, func(ctx context.Context, r *MultiSwapRequest) (*models.TransactionResult, error) {
		return ptr(s.engine.MultiSwap(ctx, r.Swaps, r.SimulateOnly)), nil
	}, opts)
	unary(mux, SendIBCProcedure, func(ctx context.Context, r *SendIBCRequest) (*models.TransactionResult, error) {
		return ptr(s.engine.SendIBC(ctx, r.Transfer, r.SimulateOnly)), nil
	}, opts)
	unary(mux, TransferProcedure, func(ctx context.Context, r *TransferRequest) (*models.TransactionResult, error) {
		return ptr(s.engine.Transfer(ctx, r.Send, r.TargetDenom, r.SimulateOnly)), nil
	}, opts)

	unary(mux, ResolveRouteProcedure, s.resolveRoute, readOpts)
	unary(mux, GetAddressProcedure, s.getAddress, readOpts)
	unary(mux, StakingProcedure, func(ctx context.Context, r *StakingRequest) (*StakingResponse, error) {
		return s.staking(ctx, r, s.engine.FetchStakingData)
	}, readOpts)
	unary(mux, ValidatorsProcedure, func(ctx context.Context, r *StakingRequest) (*StakingResponse, error) {
		return s.staking(ctx, r, s.engine.FetchValidatorData)
	}, readOpts)
	unary(mux, EndpointsProcedure, func(ctx context.Context, _ *Empty) (*EndpointsResponse, error) {
		if s.endpoints == nil {
			return &EndpointsResponse{}, nil
		}
		return &EndpointsResponse{Endpoints: s.endpoints.Rank()}, nil
	}, readOpts)
	unary(mux, ResetEndpointsProcedure, func(ctx context.Context, _ *Empty) (*Empty, error) {
		if s.endpoints == nil {
			return &Empty{}, nil
		}
		if err := s.endpoints.Reset(); err != nil {
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		return &Empty{}, nil
	}, opts)
	unary(mux, NotificationsProcedure, func(ctx context.Context, _ *Empty) (*NotificationsResponse, error) {
		var recent []wallet.Notification
		if s.notifications != nil {
			recent = s.notifications.Recent()
		}
		return &NotificationsResponse{Notifications: recent}, nil
	}, readOpts)
}

// resolveRoute answers with the resolution whatever its outcome. Only a
// malformed request is an error.
func (s *WalletServer) resolveRoute(ctx context.Context, r *ResolveRouteRequest) (*router.Resolution, error) {
	if s.resolver == nil {
		return nil, connect.NewError(connect.CodeUnimplemented, fmt.Errorf("route resolution is not configured"))
	}
	sender := r.Sender
	if sender == "" {
		sender = s.engine.Address()
	}
	if r.Recipient == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("recipient is required"))
	}
	level := r.Level
	switch level {
	case "":
		level = s.level
	case models.Mainnet, models.Testnet:
	default:
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("level must be %q or %q", models.Mainnet, models.Testnet))
	}
	res, err := s.resolver.Resolve(ctx, sender, r.Recipient, level)
	if err != nil {
		return nil, toConnectError(err)
	}
	return &res, nil
}

func (s *WalletServer) getAddress(ctx context.Context, r *GetAddressRequest) (*GetAddressResponse, error) {
	if r.Prefix == "" {
		return &GetAddressResponse{Address: s.engine.Address()}, nil
	}
	addr, err := s.engine.AddressOn(r.Prefix)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	return &GetAddressResponse{Address: addr}, nil
}

func (s *WalletServer) staking(ctx context.Context, r *StakingRequest, fetch func(context.Context) ([]models.CombinedStakingInfo, error)) (*StakingResponse, error) {
	resp := &StakingResponse{Delegator: s.engine.Address()}
	if r.Cached {
		resp.Infos = s.engine.StakingView()
		return resp, nil
	}
	infos, err := fetch(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	resp.Infos = infos
	return resp, nil
}

// toConnectError maps engine error categories onto connect codes.
func toConnectError(err error) *connect.Error {
	if isClientGone(err) {
		return connect.NewError(connect.CodeCanceled, err)
	}
	switch engerr.CodeOf(err) {
	case engerr.CodeConnectivity:
		return connect.NewError(connect.CodeUnavailable, err)
	case engerr.CodeBusinessRule:
		return connect.NewError(connect.CodeInvalidArgument, err)
	case engerr.CodeCredential:
		return connect.NewError(connect.CodePermissionDenied, err)
	case engerr.CodeChainRejection:
		return connect.NewError(connect.CodeFailedPrecondition, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

type handlerMux interface {
	Handle(pattern string, handler http.Handler)
}

func unary[Req, Res any](mux handlerMux, procedure string, fn func(context.Context, *Req) (*Res, error), opts []connect.HandlerOption) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure,
		func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
			res, err := fn(ctx, req.Msg)
			if err != nil {
				return nil, err
			}
			return connect.NewResponse(res), nil
		},
		opts...,
	))
}

func ptr[T any](v T) *T {
	return &v
}
