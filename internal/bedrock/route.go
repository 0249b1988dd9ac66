package bedrock

import "strings"

// DefaultModelID is the model used when neither the request nor the
// environment selects one.
const DefaultModelID = "us.meta.llama4-maverick-17b-instruct-v1:0"

// friendlyModelIDs maps human-readable model names to Bedrock model
// identifiers. Fixed table, not a registry.
var friendlyModelIDs = map[string]string{
	"DeepSeek-R1":                   "us.deepseek.r1-v1:0",
	"Llama 4 Maverick 17B Instruct": "us.meta.llama4-maverick-17b-instruct-v1:0",
	"Llama 4 Scout 17B Instruct":    "us.meta.llama4-scout-17b-instruct-v1:0",
}

// LookupFriendlyName resolves a friendly model name to a model identifier.
func LookupFriendlyName(name string) (string, bool) {
	id, ok := friendlyModelIDs[name]
	return id, ok
}

// IsInferenceProfileARN reports whether s has the shape of a Bedrock
// inference profile ARN rather than a plain model identifier.
func IsInferenceProfileARN(s string) bool {
	return strings.HasPrefix(s, "arn:aws:bedrock:") && strings.Contains(s, ":inference-profile/")
}

// RouteKind discriminates the two routing tokens Bedrock accepts.
type RouteKind string

const (
	// RouteKindModelID routes by plain model identifier.
	RouteKindModelID RouteKind = "modelId"
	// RouteKindInferenceProfile routes by inference profile ARN.
	RouteKindInferenceProfile RouteKind = "inferenceProfileArn"
)

// Route is the resolved routing selection for one generation call. Exactly
// one of the two arms is ever set; a call never carries both a model
// identifier and a profile ARN.
type Route struct {
	kind RouteKind
	id   string
}

// ModelRoute builds a Route addressing a plain model identifier.
func ModelRoute(modelID string) Route {
	return Route{kind: RouteKindModelID, id: modelID}
}

// ProfileRoute builds a Route addressing an inference profile ARN.
func ProfileRoute(arn string) Route {
	return Route{kind: RouteKindInferenceProfile, id: arn}
}

// Kind returns which arm of the union is set.
func (r Route) Kind() RouteKind { return r.kind }

// IsProfile reports whether the route addresses an inference profile.
func (r Route) IsProfile() bool { return r.kind == RouteKindInferenceProfile }

// Identifier returns the single routing token to send to Bedrock.
func (r Route) Identifier() string { return r.id }

func (r Route) String() string { return string(r.kind) + "=" + r.id }

// RouteRequest carries the caller-supplied routing fields. Empty fields fall
// through to the process-wide defaults.
type RouteRequest struct {
	ModelID             string
	ModelName           string
	InferenceProfileARN string
}

// ResolveRoute resolves a request plus process-wide defaults to exactly one
// route. Precedence per field is request over default; the model identifier
// beats the friendly-name table, which beats DefaultModelID. An explicit
// profile ARN always wins, and a model identifier that itself has the
// inference-profile shape is reclassified as a profile reference.
func ResolveRoute(req, defaults RouteRequest) Route {
	modelID := firstNonEmpty(req.ModelID, defaults.ModelID)
	modelName := firstNonEmpty(req.ModelName, defaults.ModelName)
	profileARN := firstNonEmpty(req.InferenceProfileARN, defaults.InferenceProfileARN)

	if modelID == "" {
		if id, ok := LookupFriendlyName(modelName); ok {
			modelID = id
		}
	}
	if modelID == "" {
		modelID = DefaultModelID
	}

	if profileARN == "" && IsInferenceProfileARN(modelID) {
		profileARN = modelID
	}

	if profileARN != "" {
		return ProfileRoute(profileARN)
	}
	return ModelRoute(modelID)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
