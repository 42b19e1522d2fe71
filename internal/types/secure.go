package types

// redactedPlaceholder replaces secret values in logs and serialization.
const redactedPlaceholder = "***REDACTED***"

var redactedJSON = []byte(`"***REDACTED***"`)

// SecretString is a string type that prevents accidental logging or
// serialization of sensitive values (API keys, auth tokens, connection
// strings). It overrides String() and MarshalJSON() to return a redacted
// placeholder; use Unmask() where the raw value is genuinely needed.
type SecretString string

// String returns a redacted placeholder instead of the raw value. Invoked by
// fmt functions and structured loggers via the fmt.Stringer interface.
func (s SecretString) String() string {
	return redactedPlaceholder
}

// MarshalJSON returns the redacted placeholder as a JSON string.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

// Unmask returns the raw plaintext value of the secret. Limit usage to the
// points where the value crosses a trust boundary (HTTP Authorization
// headers, database connection strings).
func (s SecretString) Unmask() string {
	return string(s)
}
