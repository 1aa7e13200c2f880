package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"quarkdapp/core/dispatch"
	"quarkdapp/core/witness"
	"quarkdapp/native/bank"
	"quarkdapp/native/common"
	"quarkdapp/native/dapp"
	"quarkdapp/observability"
	"quarkdapp/observability/logging"
)

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	start := time.Now()
	ctx, span := s.tracer.Start(r.Context(), "rpc."+req.Method, trace.WithAttributes(
		attribute.String("rpc.method", req.Method),
		attribute.String("request.id", requestIDFrom(r.Context())),
	))
	defer span.End()

	result, rpcErr := s.dispatch(ctx, r, req)
	code := 0
	if rpcErr != nil {
		code = rpcErr.Code
		span.SetStatus(codes.Error, rpcErr.Message)
		span.SetAttributes(attribute.Int("rpc.error_code", code))
		writeError(w, statusFor(code), req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
	} else {
		writeResult(w, req.ID, result)
	}
	observability.ModuleMetrics().Observe(req.Method, code, time.Since(start))
}

func (s *Server) dispatch(ctx context.Context, r *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	if !strings.HasPrefix(req.Method, methodPrefix) {
		return nil, &RPCError{Code: codeMethodNotFound, Message: "method not found", Data: req.Method}
	}
	name := strings.TrimPrefix(req.Method, methodPrefix)
	op, err := dispatch.ParseOperation(name)
	if err != nil {
		return dispatch.UnknownOperation, nil
	}
	if len(req.Params) != 1 {
		return nil, &RPCError{Code: codeInvalidParams, Message: "parameter object required"}
	}
	var params CallParams
	dec := json.NewDecoder(bytes.NewReader(req.Params[0]))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&params); err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: "invalid parameter object", Data: err.Error()}
	}
	call, err := dispatch.Decode(name, params.Args)
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	signers, err := recoverSigners(call, params.Signatures)
	if err != nil {
		return nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}

	if op.Mutating() {
		value := chargedValue(call)
		for addr := range signers {
			if err := s.quota.Charge(addr, s.now().Unix(), value); err != nil {
				observability.ModuleMetrics().RecordThrottle("signer_quota")
				return nil, &RPCError{Code: codeRateLimited, Message: err.Error()}
			}
		}
	}

	res := s.exec.Execute(ctx, call, signers)
	if !res.OK() {
		s.logger.WarnContext(ctx, "rpc call rejected",
			slog.String("method", req.Method),
			slog.String("request_id", requestIDFrom(r.Context())),
			slog.String("reason", res.Err.Error()),
			logging.MaskField("source", clientSource(r)))
		return nil, &RPCError{Code: errorCode(res.Err), Message: res.Err.Error(), Data: res.Value}
	}
	return res.Value, nil
}

// recoverSigners derives the witness set from hex signatures over the call
// digest. No signatures yields an empty set.
func recoverSigners(call dispatch.Call, encoded []string) (witness.Signers, error) {
	if len(encoded) == 0 {
		return witness.NewSigners(), nil
	}
	digest, err := dispatch.Digest(call)
	if err != nil {
		return nil, err
	}
	sigs := make([][]byte, 0, len(encoded))
	for i, value := range encoded {
		sig, err := hexutil.Decode(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("signature %d: %v", i, err)
		}
		sigs = append(sigs, sig)
	}
	return witness.Recover(digest, sigs)
}

// chargedValue is the amount counted against the signer value quota.
func chargedValue(call dispatch.Call) *big.Int {
	args, ok := call.Args.(*dispatch.OrderArgs)
	if !ok {
		return nil
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(args.Amount), 10)
	if !ok || amount.Sign() <= 0 {
		return nil
	}
	return amount
}

func errorCode(err error) int {
	switch {
	case errors.Is(err, dapp.ErrUnauthorized), errors.Is(err, bank.ErrUnauthorized):
		return codeUnauthorized
	case errors.Is(err, common.ErrModulePaused):
		return codePaused
	case errors.Is(err, bank.ErrInsufficientFunds):
		return codeInsufficientFunds
	case errors.Is(err, dapp.ErrWindowViolation):
		return codeWindowViolation
	case errors.Is(err, dapp.ErrInvalidArgument), errors.Is(err, bank.ErrInvalidAmount):
		return codeInvalidParams
	case errors.Is(err, dapp.ErrPrecondition):
		return codePrecondition
	default:
		return codeServerError
	}
}

func statusFor(code int) int {
	switch code {
	case codeParseError, codeInvalidRequest, codeInvalidParams:
		return http.StatusBadRequest
	case codeMethodNotFound:
		return http.StatusNotFound
	case codeUnauthorized:
		return http.StatusUnauthorized
	case codePrecondition, codeWindowViolation, codeInsufficientFunds:
		return http.StatusConflict
	case codePaused:
		return http.StatusServiceUnavailable
	case codeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
