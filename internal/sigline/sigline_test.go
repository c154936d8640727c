package sigline

import "testing"

var codeFormat = Format{Prefix: "#", AfterShebang: true}
var mdFormat = Format{Prefix: "<!--", Suffix: "-->", AfterShebang: false}

func TestEmbedExtract_CodeFile_NoShebang(t *testing.T) {
	info := Info{Kind: KindSigned, Timestamp: "2026-01-01T00:00:00Z", ContentHash: "abcd", Signature: "sig", Fingerprint: "0123456789abcdef"}
	body := []byte("print('hello')\n")

	signed := Embed(body, codeFormat, info)

	got, stripped, found := Extract(signed, codeFormat)
	if !found {
		t.Fatal("expected signature to be found")
	}
	if got.ContentHash != "abcd" || got.Kind != KindSigned {
		t.Errorf("parsed info mismatch: %+v", got)
	}
	if string(stripped) != string(body) {
		t.Errorf("stripped content = %q, want %q", stripped, body)
	}
}

func TestEmbedExtract_CodeFile_WithShebang(t *testing.T) {
	info := Info{Kind: KindValidated, Timestamp: "2026-01-01T00:00:00Z", ContentHash: "abcd", Signature: "sig", Fingerprint: "0123456789abcdef"}
	body := []byte("#!/usr/bin/env python3\nprint('hi')\n")

	signed := Embed(body, codeFormat, info)
	_, stripped, found := Extract(signed, codeFormat)
	if !found {
		t.Fatal("expected signature to be found after shebang")
	}
	if string(stripped) != string(body) {
		t.Errorf("stripped content = %q, want %q", stripped, body)
	}
}

func TestEmbedExtract_Markdown(t *testing.T) {
	info := Info{Kind: KindSigned, Timestamp: "2026-01-01T00:00:00Z", ContentHash: "deadbeef", Signature: "sig", Fingerprint: "fedcba9876543210"}
	body := []byte("# Title\n\nBody text.\n")

	signed := Embed(body, mdFormat, info)
	got, stripped, found := Extract(signed, mdFormat)
	if !found {
		t.Fatal("expected markdown signature to be found")
	}
	if got.ContentHash != "deadbeef" {
		t.Errorf("got hash %s", got.ContentHash)
	}
	if string(stripped) != string(body) {
		t.Errorf("stripped = %q, want %q", stripped, body)
	}
}

func TestExtract_Unsigned(t *testing.T) {
	_, _, found := Extract([]byte("no signature here\n"), codeFormat)
	if found {
		t.Fatal("expected no signature to be found")
	}
}

func TestEmbed_ResigningReplacesPriorLine(t *testing.T) {
	info1 := Info{Kind: KindSigned, Timestamp: "t1", ContentHash: "first", Signature: "sig1", Fingerprint: "0000000000000000"}
	info2 := Info{Kind: KindSigned, Timestamp: "t2", ContentHash: "second", Signature: "sig2", Fingerprint: "1111111111111111"}
	body := []byte("content\n")

	once := Embed(body, codeFormat, info1)
	twice := Embed(once, codeFormat, info2)

	got, stripped, found := Extract(twice, codeFormat)
	if !found {
		t.Fatal("expected signature found")
	}
	if got.ContentHash != "second" {
		t.Errorf("expected re-signing to replace the old line, got hash %s", got.ContentHash)
	}
	if string(stripped) != string(body) {
		t.Errorf("stripped = %q, want %q", stripped, body)
	}
}

func TestRegistryCountersignature_RoundTrips(t *testing.T) {
	info := Info{Kind: KindValidated, Timestamp: "t", ContentHash: "h", Signature: "s", Fingerprint: "2222222222222222", RegistryUser: "alice"}
	body := []byte("x\n")

	signed := Embed(body, codeFormat, info)
	got, _, found := Extract(signed, codeFormat)
	if !found {
		t.Fatal("expected signature found")
	}
	if got.RegistryUser != "alice" {
		t.Errorf("RegistryUser = %q, want alice", got.RegistryUser)
	}
}

func TestParse_RejectsMalformed(t *testing.T) {
	if _, err := Parse("not-a-signature"); err == nil {
		t.Fatal("expected error for malformed body")
	}
}
