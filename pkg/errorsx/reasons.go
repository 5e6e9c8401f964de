package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonLLMGenerate    ReasonCode = "llm_generate"
	ReasonLLMToolRound   ReasonCode = "llm_tool_round"
	ReasonLLMRateLimit   ReasonCode = "llm_rate_limit"
	ReasonLLMCircuitOpen ReasonCode = "llm_circuit_open"

	ReasonToolExecute ReasonCode = "tool_execute"

	ReasonStoreQuery    ReasonCode = "store_query"
	ReasonStoreNotFound ReasonCode = "store_not_found"

	ReasonAuthToken       ReasonCode = "auth_token"
	ReasonAuthCredentials ReasonCode = "auth_credentials"

	ReasonTransportSend ReasonCode = "transport_send"
)
