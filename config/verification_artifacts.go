package config

const (
	// Verification artifact constants for the publish verification set
	VerificationKeyURL  = "https://artifacts.ams3.cdn.digitaloceanspaces.com/ballotd/dev/vk.key"
	VerificationKeyHash = "6d2e1c07cbb0a5c1bb4cbb8bfb4ad0a1f5fbbd2b07276cbd23cc2d4bd1e0f9a2"
	CircuitSettingsURL  = "https://artifacts.ams3.cdn.digitaloceanspaces.com/ballotd/dev/settings.json"
	CircuitSettingsHash = "a1c3be4f2a2e6e2dd7d2cb4ef22e4df57e46ab2c0da84e6ff1df00d87c1e13b4"
	KzgSRSURL           = "https://artifacts.ams3.cdn.digitaloceanspaces.com/ballotd/dev/kzg_srs.bin"
	KzgSRSHash          = "0fd3f2a94f6c0eeb5b4a21f8e2f54d32cb90b52dc47e6b7a25ab01de6c5b9f1d"
)
