package credentials

// Field identifies one credential value held by a Record.
type Field int

const (
	AccessToken Field = iota
	ClientID
	ClientSecret
	ClientUserID
	ClientUserName
	SpecialToken
	ZivaUserCode
)

// Fields lists every credential field in a stable order.
var Fields = []Field{
	AccessToken,
	ClientID,
	ClientSecret,
	ClientUserID,
	ClientUserName,
	SpecialToken,
	ZivaUserCode,
}

// Key returns the JSON key the field is stored under, both in server
// responses and in the cache blob.
func (f Field) Key() string {
	switch f {
	case AccessToken:
		return "access_token"
	case ClientID:
		return "clientId"
	case ClientSecret:
		return "clientSecret"
	case ClientUserID:
		return "clientUserId"
	case ClientUserName:
		return "clientUserName"
	case SpecialToken:
		return "specialToken"
	case ZivaUserCode:
		return "ziva_user_code"
	default:
		return ""
	}
}

// Sensitive reports whether the field must be masked in logs and dumps.
func (f Field) Sensitive() bool {
	switch f {
	case AccessToken, ClientSecret, SpecialToken:
		return true
	default:
		return false
	}
}

func (f Field) String() string {
	if k := f.Key(); k != "" {
		return k
	}
	return "unknown"
}

// FieldByKey resolves a JSON key back to its Field.
func FieldByKey(key string) (Field, bool) {
	for _, f := range Fields {
		if f.Key() == key {
			return f, true
		}
	}
	return 0, false
}
