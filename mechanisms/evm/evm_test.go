package evm

import (
	"math/big"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	x402 "github.com/x402-foundation/x402-interceptor"
)

func TestGetEvmChainId(t *testing.T) {
	tests := []struct {
		name    string
		network string
		want    *big.Int
		wantErr bool
	}{
		{name: "base network", network: "base", want: ChainIDBase},
		{name: "base-mainnet network", network: "base-mainnet", want: ChainIDBase},
		{name: "eip155:8453 network", network: "eip155:8453", want: ChainIDBase},
		{name: "base-sepolia network", network: "base-sepolia", want: ChainIDBaseSepolia},
		{name: "any caip-2 chain", network: "eip155:137", want: big.NewInt(137)},
		{name: "legacy polygon", network: "polygon", want: big.NewInt(137)},
		{name: "unsupported network", network: "unsupported", wantErr: true},
		{name: "wrong namespace", network: "ethereum:1", wantErr: true},
		{name: "empty", network: "", wantErr: true},
		{name: "non-numeric reference", network: "eip155:abc", wantErr: true},
		{name: "missing reference", network: "eip155:", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GetEvmChainId(tt.network)
			if (err != nil) != tt.wantErr {
				t.Errorf("GetEvmChainId() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got.Cmp(tt.want) != 0 {
				t.Errorf("GetEvmChainId() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEvmChainIdReturnsCopy(t *testing.T) {
	got, err := GetEvmChainId("base")
	if err != nil {
		t.Fatal(err)
	}
	got.SetInt64(1)
	if ChainIDBase.Int64() != 8453 {
		t.Fatalf("network config was mutated: %v", ChainIDBase)
	}
}

func TestLegacyNetworks(t *testing.T) {
	names := LegacyNetworks()
	for _, want := range []string{"base", "base-sepolia", "polygon", "ethereum"} {
		found := false
		for _, name := range names {
			if name == want {
				found = true
			}
		}
		if !found {
			t.Errorf("LegacyNetworks() is missing %q", want)
		}
	}
	for i, name := range names {
		if strings.HasPrefix(name, "eip155:") {
			t.Errorf("LegacyNetworks() contains CAIP-2 id %q", name)
		}
		if !IsValidNetwork(name) {
			t.Errorf("%q does not resolve to a chain id", name)
		}
		if i > 0 && names[i-1] >= name {
			t.Errorf("LegacyNetworks() not sorted at %q", name)
		}
	}
}

func TestGetAssetInfo(t *testing.T) {
	info, err := GetAssetInfo("eip155:84532", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Name != "USDC" || info.Version != "2" || info.Decimals != 6 {
		t.Errorf("unexpected default asset: %+v", info)
	}

	info, err = GetAssetInfo("base", strings.ToLower("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"))
	if err != nil {
		t.Fatalf("lookup should be case-insensitive: %v", err)
	}
	if info.Name != "USD Coin" {
		t.Errorf("Name = %q, want USD Coin", info.Name)
	}

	if _, err := GetAssetInfo("base", "0x0000000000000000000000000000000000000001"); err == nil {
		t.Error("expected error for unknown asset")
	}
	if _, err := GetAssetInfo("eip155:1", ""); err == nil {
		t.Error("expected error for network without configuration")
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int
		want     *big.Int
		wantErr  bool
	}{
		{name: "whole number", amount: "100", decimals: 6, want: big.NewInt(100000000)},
		{name: "decimal amount", amount: "1.5", decimals: 6, want: big.NewInt(1500000)},
		{name: "small decimal", amount: "0.000001", decimals: 6, want: big.NewInt(1)},
		{name: "truncate extra decimals", amount: "1.1234567", decimals: 6, want: big.NewInt(1123456)},
		{name: "zero decimals", amount: "42", decimals: 0, want: big.NewInt(42)},
		{name: "invalid format", amount: "1.2.3", decimals: 6, wantErr: true},
		{name: "not a number", amount: "abc", decimals: 6, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.amount, tt.decimals)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseAmount() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got.Cmp(tt.want) != 0 {
				t.Errorf("ParseAmount() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name     string
		amount   *big.Int
		decimals int
		want     string
	}{
		{name: "whole number", amount: big.NewInt(1000000), decimals: 6, want: "1"},
		{name: "with decimals", amount: big.NewInt(1500000), decimals: 6, want: "1.5"},
		{name: "small amount", amount: big.NewInt(1), decimals: 6, want: "0.000001"},
		{name: "zero", amount: big.NewInt(0), decimals: 6, want: "0"},
		{name: "nil amount", amount: nil, decimals: 6, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatAmount(tt.amount, tt.decimals); got != tt.want {
				t.Errorf("FormatAmount() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNonces(t *testing.T) {
	hexNonce := regexp.MustCompile(`^0x[0-9a-f]{64}$`)
	a, err := CreateNonce()
	if err != nil {
		t.Fatal(err)
	}
	b, err := CreateNonce()
	if err != nil {
		t.Fatal(err)
	}
	if !hexNonce.MatchString(a) {
		t.Errorf("CreateNonce() = %q, want 0x + 64 hex chars", a)
	}
	if a == b {
		t.Error("two nonces should differ")
	}

	p, err := CreatePermit2Nonce()
	if err != nil {
		t.Fatal(err)
	}
	n, ok := new(big.Int).SetString(p, 10)
	if !ok {
		t.Fatalf("CreatePermit2Nonce() = %q, want decimal", p)
	}
	if n.Cmp(MaxUint256()) > 0 {
		t.Errorf("permit2 nonce %s exceeds uint256", p)
	}
}

func TestCreateValidityWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	after, before := CreateValidityWindow(now, 10*time.Minute)
	if after.Int64() != 1_700_000_000 {
		t.Errorf("validAfter = %v", after)
	}
	if before.Int64() != 1_700_000_600 {
		t.Errorf("validBefore = %v", before)
	}

	after, before = CreateValidityWindow(now, 0)
	if before.Cmp(after) <= 0 {
		t.Errorf("window must be non-empty: %v..%v", after, before)
	}
}

func TestAddressHelpers(t *testing.T) {
	if got := NormalizeAddress("0xABCDEF"); got != "0xabcdef" {
		t.Errorf("NormalizeAddress() = %q", got)
	}
	if got := NormalizeAddress("ABCDEF"); got != "0xabcdef" {
		t.Errorf("NormalizeAddress() without prefix = %q", got)
	}
	if !IsValidAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913") {
		t.Error("expected valid address")
	}
	if !IsValidAddress("833589fCD6eDb6E08f4c7C32D4f71b54bdA02913") {
		t.Error("expected valid address without prefix")
	}
	if IsValidAddress("0x1234") {
		t.Error("short address should be invalid")
	}
}

func TestHexToBytes(t *testing.T) {
	for _, in := range []string{"", "0x"} {
		b, err := HexToBytes(in)
		if err != nil || len(b) != 0 {
			t.Errorf("HexToBytes(%q) = %v, %v", in, b, err)
		}
	}
	b, err := HexToBytes("0x0102")
	if err != nil || len(b) != 2 || b[1] != 2 {
		t.Errorf("HexToBytes(0x0102) = %v, %v", b, err)
	}
	if _, err := HexToBytes("0x123"); err == nil {
		t.Error("odd length should fail")
	}
	if _, err := HexToBytes("0xzz"); err == nil {
		t.Error("invalid hex should fail")
	}
	if got := BytesToHex([]byte{0xab}); got != "0xab" {
		t.Errorf("BytesToHex() = %q", got)
	}
}

func TestMaxUint256(t *testing.T) {
	if MaxUint256().BitLen() != 256 {
		t.Errorf("BitLen = %d", MaxUint256().BitLen())
	}
	if new(big.Int).Add(MaxUint256(), big.NewInt(1)).BitLen() != 257 {
		t.Error("MaxUint256 + 1 should overflow 256 bits")
	}
}

func signDigest(t *testing.T, digest []byte) (common.Address, []byte) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		t.Fatal(err)
	}
	sig[64] += 27
	return crypto.PubkeyToAddress(key.PublicKey), sig
}

func TestHashEIP3009AuthorizationRecovers(t *testing.T) {
	nonce, _ := CreateNonce()
	auth := ExactEIP3009Authorization{
		From:        "0x1111111111111111111111111111111111111111",
		To:          "0x2222222222222222222222222222222222222222",
		Value:       "1000",
		ValidAfter:  "1700000000",
		ValidBefore: "1700003600",
		Nonce:       nonce,
	}
	asset := baseSepolia.DefaultAsset
	digest, err := HashEIP3009Authorization(auth, ChainIDBaseSepolia, asset.Address, asset.Name, asset.Version)
	if err != nil {
		t.Fatal(err)
	}
	if len(digest) != 32 {
		t.Fatalf("digest length = %d", len(digest))
	}

	signer, sig := signDigest(t, digest)
	got, err := RecoverTypedDataSigner(digest, sig)
	if err != nil {
		t.Fatal(err)
	}
	if got != signer {
		t.Errorf("recovered %s, want %s", got.Hex(), signer.Hex())
	}

	other, err := HashEIP3009Authorization(auth, ChainIDBase, asset.Address, asset.Name, asset.Version)
	if err != nil {
		t.Fatal(err)
	}
	if string(other) == string(digest) {
		t.Error("digest must depend on chain id")
	}
}

func TestHashEIP3009AuthorizationRejectsBadNonce(t *testing.T) {
	auth := ExactEIP3009Authorization{Value: "1", ValidAfter: "0", ValidBefore: "1", Nonce: "0x01"}
	if _, err := HashEIP3009Authorization(auth, ChainIDBase, "0x01", "USDC", "2"); err == nil {
		t.Error("short nonce should fail")
	}
}

func TestHashPermitAuthorization(t *testing.T) {
	permit := ExactPermitAuthorization{
		Owner:    "0x1111111111111111111111111111111111111111",
		Spender:  X402ExactPermit2ProxyAddress,
		Value:    "1000",
		Nonce:    "7",
		Deadline: "1700003600",
	}
	a, err := HashPermitAuthorization(permit, ChainIDBase, baseMainnet.DefaultAsset.Address, "USD Coin", "2")
	if err != nil {
		t.Fatal(err)
	}
	permit.Nonce = "8"
	b, err := HashPermitAuthorization(permit, ChainIDBase, baseMainnet.DefaultAsset.Address, "USD Coin", "2")
	if err != nil {
		t.Fatal(err)
	}
	if string(a) == string(b) {
		t.Error("digest must depend on nonce")
	}

	permit.Deadline = "-1"
	if _, err := HashPermitAuthorization(permit, ChainIDBase, baseMainnet.DefaultAsset.Address, "USD Coin", "2"); err == nil {
		t.Error("negative deadline should fail")
	}
}

func TestHashPermit2Authorization(t *testing.T) {
	auth := Permit2Authorization{
		From:      "0x1111111111111111111111111111111111111111",
		Permitted: Permit2TokenPermissions{Token: baseMainnet.DefaultAsset.Address, Amount: "1000"},
		Spender:   X402ExactPermit2ProxyAddress,
		Nonce:     "123456789",
		Deadline:  "1700003600",
		Witness:   Permit2Witness{To: "0x2222222222222222222222222222222222222222", ValidAfter: "1700000000", Extra: "0x"},
	}
	digest, err := HashPermit2Authorization(auth, ChainIDBase)
	if err != nil {
		t.Fatal(err)
	}
	signer, sig := signDigest(t, digest)
	got, err := RecoverTypedDataSigner(digest, sig)
	if err != nil {
		t.Fatal(err)
	}
	if got != signer {
		t.Errorf("recovered %s, want %s", got.Hex(), signer.Hex())
	}
}

func TestRecoverTypedDataSignerRejectsShortSignature(t *testing.T) {
	if _, err := RecoverTypedDataSigner(make([]byte, 32), make([]byte, 64)); err == nil {
		t.Error("expected error")
	}
}

func TestParseSignedAuthorization(t *testing.T) {
	tests := []struct {
		name string
		auth SignedAuthorization
	}{
		{"eip3009", &ExactEIP3009Payload{Signature: "0xsig", Authorization: ExactEIP3009Authorization{From: "0x1", To: "0x2", Value: "1", ValidAfter: "0", ValidBefore: "10", Nonce: "0x00"}}},
		{"permit", &ExactPermitPayload{Signature: "0xsig", Permit: ExactPermitAuthorization{Owner: "0x1", Spender: "0x2", Value: "1", Nonce: "3", Deadline: "10"}}},
		{"permit2", &ExactPermit2Payload{Signature: "0xsig", Permit2Authorization: Permit2Authorization{
			From: "0x1", Spender: "0x2", Nonce: "5", Deadline: "10",
			Permitted: Permit2TokenPermissions{Token: "0x3", Amount: "1"},
			Witness:   Permit2Witness{To: "0x4", ValidAfter: "0", Extra: "0x"},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSignedAuthorization(tt.auth.AuthorizationType(), tt.auth.ToMap())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.AuthorizationType() != tt.auth.AuthorizationType() {
				t.Errorf("type = %s, want %s", got.AuthorizationType(), tt.auth.AuthorizationType())
			}
			switch want := tt.auth.(type) {
			case *ExactEIP3009Payload:
				if *got.(*ExactEIP3009Payload) != *want {
					t.Errorf("got %+v, want %+v", got, want)
				}
			case *ExactPermitPayload:
				if *got.(*ExactPermitPayload) != *want {
					t.Errorf("got %+v, want %+v", got, want)
				}
			case *ExactPermit2Payload:
				if *got.(*ExactPermit2Payload) != *want {
					t.Errorf("got %+v, want %+v", got, want)
				}
			}
		})
	}

	if _, err := ParseSignedAuthorization(x402.AuthorizationTypePermit, map[string]interface{}{}); err == nil {
		t.Error("expected error for missing permit field")
	}
	if _, err := ParseSignedAuthorization("unknown", map[string]interface{}{}); err == nil {
		t.Error("expected error for unknown type")
	}
}
