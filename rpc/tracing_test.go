package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRPCSpansContinueCallerTrace(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prevProvider := otel.GetTracerProvider()
	prevPropagator := otel.GetTextMapPropagator()
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
		_ = provider.Shutdown(context.Background())
	})

	env := newTestEnv(t, Config{})
	body, err := json.Marshal(RPCRequest{JSONRPC: jsonRPCVersion, Method: "dapp_transferOwnership", ID: 1})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	var serverSpan, methodSpan sdktrace.ReadOnlySpan
	for _, span := range recorder.Ended() {
		switch span.Name() {
		case serverSpanName:
			serverSpan = span
		case "rpc.dapp_transferOwnership":
			methodSpan = span
		}
	}
	if serverSpan == nil || methodSpan == nil {
		t.Fatalf("expected server and method spans, got %d spans", len(recorder.Ended()))
	}
	if got := serverSpan.SpanContext().TraceID().String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("server span not joined to caller trace: %s", got)
	}
	if got := serverSpan.Parent().SpanID().String(); got != "00f067aa0ba902b7" {
		t.Fatalf("unexpected server span parent %s", got)
	}
	if methodSpan.Parent().SpanID() != serverSpan.SpanContext().SpanID() {
		t.Fatalf("method span is not a child of the server span")
	}
}
