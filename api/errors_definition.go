//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 403, 404 or 409, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500, 502, 503 or 504, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX.
// If you notice there's a gap, DON'T fill it in, that code was used in the past and shouldn't be reused.
var (
	ErrBallotNotFound             = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("ballot not found")}
	ErrMalformedBody              = Error{Code: 40002, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedAddress           = Error{Code: 40003, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed voter address")}
	ErrVotingClosed               = Error{Code: 40004, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("voting window closed")}
	ErrAlreadyPublished           = Error{Code: 40005, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("ballot already published")}
	ErrPolicyViolation            = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("vote policy violation")}
	ErrUnauthorizedVoter          = Error{Code: 40007, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("voter not approved")}
	ErrHashMismatch               = Error{Code: 40008, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("hashed votes do not match stored votes")}
	ErrInvalidBallotSignature     = Error{Code: 40009, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid ballot signature")}
	ErrInvalidCommitmentSignature = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid commitment signature")}
	ErrUnknownProject             = Error{Code: 40011, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("unknown project")}
	ErrInvalidVote                = Error{Code: 40012, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid vote")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrCommitmentService          = Error{Code: 50003, HTTPstatus: http.StatusBadGateway, Err: fmt.Errorf("proving service unavailable")}
	ErrCommitmentTimeout          = Error{Code: 50004, HTTPstatus: http.StatusGatewayTimeout, Err: fmt.Errorf("proving service timed out")}
	ErrMalformedProof             = Error{Code: 50005, HTTPstatus: http.StatusBadGateway, Err: fmt.Errorf("proving service returned a malformed proof")}
	ErrArtifactsUnavailable       = Error{Code: 50006, HTTPstatus: http.StatusServiceUnavailable, Err: fmt.Errorf("verification artifacts not loaded")}
)
