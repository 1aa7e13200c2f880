package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"quarkdapp/cmd/internal/passphrase"
	"quarkdapp/core/dispatch"
	"quarkdapp/core/witness"
	"quarkdapp/crypto"
)

const keystorePassEnv = "QUARK_KEYSTORE_PASS"

var (
	rpcEndpoint   = defaultRPCEndpoint()
	rpcHTTPClient = &http.Client{Timeout: 30 * time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	passSource    = passphrase.NewSource(keystorePassEnv, "signer keystore")
	keystoreCost  = crypto.StandardKeystore
)

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	args, err := applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if len(args) < 1 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	switch args[0] {
	case "generate-key":
		return runGenerateKey(args[1:], stdout, stderr)
	case "address":
		return runAddress(args[1:], stdout, stderr)
	case "digest":
		return runDigest(args[1:], stdout, stderr)
	case "call":
		return runCall(args[1:], stdout, stderr)
	case "operations":
		for _, op := range dispatch.Operations() {
			fmt.Fprintln(stdout, op.String())
		}
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprintln(stderr, usage())
		return 1
	}
}

func usage() string {
	return strings.Join([]string{
		"Usage: quark-cli [--rpc URL] <command> [flags]",
		"",
		"Commands:",
		"  generate-key --out FILE            create a signer keystore",
		"  address --key FILE                 print the address of a keystore",
		"  operations                         list contract operations",
		"  digest OPERATION --args JSON       print the digest signers must sign",
		"  call OPERATION --args JSON [--key FILE]...",
		"                                     sign and submit an operation",
		"",
		"Keystore passphrases are read from " + keystorePassEnv + " or prompted.",
	}, "\n")
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("QUARK_RPC_URL")); v != "" {
		return v
	}
	return "http://localhost:8545"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--rpc" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --rpc")
			}
			rpcEndpoint = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--rpc=") {
			rpcEndpoint = strings.TrimPrefix(arg, "--rpc=")
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

type keyList []string

func (k *keyList) String() string { return strings.Join(*k, ",") }

func (k *keyList) Set(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("empty key path")
	}
	*k = append(*k, value)
	return nil
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, usage())
	}
	return fs
}

func printError(w io.Writer, msg string) int {
	fmt.Fprintf(w, "Error: %s\n", msg)
	return 1
}

func runGenerateKey(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("generate-key", stderr)
	out := fs.String("out", "signer.keystore", "keystore file to create")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if _, err := os.Stat(*out); err == nil {
		return printError(stderr, fmt.Sprintf("%s already exists", *out))
	}
	pass, err := passSource.Get()
	if err != nil {
		return printError(stderr, err.Error())
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return printError(stderr, err.Error())
	}
	if err := crypto.SaveToKeystoreWith(*out, key, pass, keystoreCost); err != nil {
		return printError(stderr, fmt.Sprintf("save keystore: %v", err))
	}
	fmt.Fprintf(stdout, "Generated new key and saved to %s\n", *out)
	fmt.Fprintf(stdout, "Address: %s\n", key.PubKey().Address().String())
	return 0
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("address", stderr)
	path := fs.String("key", "", "keystore file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	key, err := loadKey(*path)
	if err != nil {
		return printError(stderr, err.Error())
	}
	fmt.Fprintln(stdout, key.PubKey().Address().String())
	return 0
}

func runDigest(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		return printError(stderr, "operation required")
	}
	fs := newFlagSet("digest", stderr)
	rawArgs := fs.String("args", "", "JSON argument object")
	argsFile := fs.String("args-file", "", "file holding the JSON argument object")
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}
	call, _, err := decodeCall(args[0], *rawArgs, *argsFile)
	if err != nil {
		return printError(stderr, err.Error())
	}
	digest, err := dispatch.Digest(call)
	if err != nil {
		return printError(stderr, err.Error())
	}
	fmt.Fprintln(stdout, hexutil.Encode(digest))
	return 0
}

func runCall(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		return printError(stderr, "operation required")
	}
	fs := newFlagSet("call", stderr)
	rawArgs := fs.String("args", "", "JSON argument object")
	argsFile := fs.String("args-file", "", "file holding the JSON argument object")
	var keys keyList
	fs.Var(&keys, "key", "signer keystore (repeatable)")
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}
	call, canonical, err := decodeCall(args[0], *rawArgs, *argsFile)
	if err != nil {
		return printError(stderr, err.Error())
	}
	signatures, err := signCall(call, keys)
	if err != nil {
		return printError(stderr, err.Error())
	}
	params := map[string]interface{}{
		"args":       json.RawMessage(canonical),
		"signatures": signatures,
	}
	result, rpcErr, err := callRPC("dapp_"+call.Op.String(), params)
	if err != nil {
		fmt.Fprintf(stderr, "RPC call failed: %v\n", err)
		return 1
	}
	if rpcErr != nil {
		fmt.Fprintf(stderr, "RPC error %d: %s\n", rpcErr.Code, rpcErr.Message)
		return 1
	}
	writeRPCResult(stdout, result)
	return 0
}

// decodeCall validates the arguments locally and returns the canonical JSON
// that was signed, so the node recomputes the same digest.
func decodeCall(name, rawArgs, argsFile string) (dispatch.Call, []byte, error) {
	if rawArgs != "" && argsFile != "" {
		return dispatch.Call{}, nil, fmt.Errorf("use either --args or --args-file")
	}
	raw := []byte(rawArgs)
	if argsFile != "" {
		data, err := os.ReadFile(argsFile)
		if err != nil {
			return dispatch.Call{}, nil, err
		}
		raw = data
	}
	call, err := dispatch.Decode(name, raw)
	if err != nil {
		return dispatch.Call{}, nil, err
	}
	canonical, err := dispatch.CanonicalArgs(call)
	if err != nil {
		return dispatch.Call{}, nil, err
	}
	return call, canonical, nil
}

func signCall(call dispatch.Call, keyPaths []string) ([]string, error) {
	if len(keyPaths) == 0 {
		return []string{}, nil
	}
	digest, err := dispatch.Digest(call)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keyPaths))
	for _, path := range keyPaths {
		key, err := loadKey(path)
		if err != nil {
			return nil, err
		}
		sig, err := witness.Sign(digest, key.PrivateKey)
		if err != nil {
			return nil, err
		}
		out = append(out, hexutil.Encode(sig))
	}
	return out, nil
}

func loadKey(path string) (*crypto.PrivateKey, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("--key is required")
	}
	pass, err := passSource.Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return nil, fmt.Errorf("load keystore %s: %w", path, err)
	}
	return key, nil
}

func callRPC(method string, params interface{}) (json.RawMessage, *rpcError, error) {
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  []interface{}{params},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	resp, err := rpcHTTPClient.Post(rpcEndpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, nil, fmt.Errorf("failed to decode RPC response: %w", err)
	}
	return rpcResp.Result, rpcResp.Error, nil
}

func writeRPCResult(w io.Writer, result json.RawMessage) {
	if len(result) == 0 {
		fmt.Fprintln(w, "null")
		return
	}
	if _, err := w.Write(result); err == nil {
		if result[len(result)-1] != '\n' {
			fmt.Fprintln(w)
		}
	}
}
