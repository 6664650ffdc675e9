package rpcserver

// Service and procedure names.
const (
	ServiceName = "tssd.multisig.v1.Multisig"

	KeygenProcedure      = "/" + ServiceName + "/Keygen"
	KeyPresenceProcedure = "/" + ServiceName + "/KeyPresence"
)

// Header names.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderErrorCode = "Tssd-Error-Code"
)

// KeygenRequest asks the daemon to generate the key for KeyUID.
type KeygenRequest struct {
	KeyUID string `json:"key_uid"`
}

// KeygenResponse carries the SEC1 compressed verifying key.
// encoding/json renders it as standard base64.
type KeygenResponse struct {
	PubKey []byte `json:"pub_key"`
}

// KeyPresenceRequest asks whether a committed key exists.
type KeyPresenceRequest struct {
	KeyUID string `json:"key_uid"`
}

// KeyPresenceResponse reports "present" or "absent".
type KeyPresenceResponse struct {
	Presence string `json:"presence"`
}

// HealthResponse is the /healthz and /readyz body.
type HealthResponse struct {
	Status      string `json:"status"`
	Initialized bool   `json:"initialized"`
	Behaviour   string `json:"behaviour"`
	Version     string `json:"version"`
}
