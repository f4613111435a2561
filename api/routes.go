package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// BallotAddressParam is the URL parameter holding the voter address
	BallotAddressParam = "address"
	// BallotEndpoint is the endpoint to retrieve and save a voter's ballot
	BallotEndpoint = "/ballots/{" + BallotAddressParam + "}"
	// BallotPublishEndpoint is the endpoint for the one-shot publish
	BallotPublishEndpoint = "/ballots/{" + BallotAddressParam + "}/publish"
)
