package facilitator

import "testing"

func testAssets() AssetAddresses {
	return AssetAddresses{Mainnet: "0xmainnetusdc", Testnet: "0xtestnetusdc"}
}

func TestBuildRequirementMainnet(t *testing.T) {
	req, err := BuildRequirement("1.50", "0xpayto", false, 0, testAssets())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Scheme != "exact" {
		t.Errorf("Scheme = %q, want exact", req.Scheme)
	}
	if req.Network != "eip155:8453" {
		t.Errorf("Network = %q, want eip155:8453", req.Network)
	}
	if req.Asset != "0xmainnetusdc" {
		t.Errorf("Asset = %q, want mainnet asset", req.Asset)
	}
	if req.Amount != "1500000" {
		t.Errorf("Amount = %q, want 1500000", req.Amount)
	}
	if req.MaxTimeoutSeconds != 300 {
		t.Errorf("MaxTimeoutSeconds = %d, want default 300", req.MaxTimeoutSeconds)
	}
}

func TestBuildRequirementTestnet(t *testing.T) {
	req, err := BuildRequirement("0.10", "0xpayto", true, 120, testAssets())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Network != "eip155:84532" {
		t.Errorf("Network = %q, want eip155:84532", req.Network)
	}
	if req.Asset != "0xtestnetusdc" {
		t.Errorf("Asset = %q, want testnet asset", req.Asset)
	}
	if req.MaxTimeoutSeconds != 120 {
		t.Errorf("MaxTimeoutSeconds = %d, want 120", req.MaxTimeoutSeconds)
	}
}

func TestBuildRequirementRejectsInvalidPrice(t *testing.T) {
	if _, err := BuildRequirement("not-a-number", "0xpayto", false, 0, testAssets()); err == nil {
		t.Fatal("expected error for invalid price")
	}
}

func TestGeneratePaymentRequiredShape(t *testing.T) {
	resp, err := GeneratePaymentRequired("https://api.example.com/resource", "premium data", "2.00", "0xpayto", false, 0, testAssets())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.X402Version != 2 {
		t.Errorf("X402Version = %d, want 2", resp.X402Version)
	}
	if resp.Resource.MimeType != "application/json" {
		t.Errorf("MimeType = %q, want application/json", resp.Resource.MimeType)
	}
	if len(resp.Accepts) != 1 {
		t.Fatalf("expected exactly one accepted requirement, got %d", len(resp.Accepts))
	}
	if resp.Accepts[0].Amount != "2000000" {
		t.Errorf("Amount = %q, want 2000000", resp.Accepts[0].Amount)
	}
}
