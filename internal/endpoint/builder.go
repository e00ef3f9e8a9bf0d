package endpoint

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

var (
	ErrMissingSelector  = errors.New("endpoint: missing selector argument")
	ErrInvalidVersion   = errors.New("endpoint: version must be positive")
	ErrFieldCount       = errors.New("endpoint: row has more values than field names")
	ErrInvalidOperation = errors.New("endpoint: operation must be insert or update")
	ErrMissingArgument  = errors.New("endpoint: missing required argument")
)

// Management host paths.
const (
	PathLogin      = "/oauth/v2/get-access-token"
	PathRefresh    = "/oauth/v2/token"
	PathCreateUser = "/api/v1/app/create-user"
	PathSetUser    = "/api/v1/app/set-application-user-data-source-token"
	pathDeleteUser = "/api/v1/app/%s/users/%s"
)

// RefreshTokenPlaceholder is sent as refresh_token on token refresh.
const RefreshTokenPlaceholder = "REFRESH_TOKEN"

// Operation is the write mode of a batch POST.
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
)

// Valid reports whether o is insert or update.
func (o Operation) Valid() bool { return o == OpInsert || o == OpUpdate }

// Batch is the body of a resource POST.
type Batch struct {
	Op   Operation        `json:"op"`
	Data []map[string]any `json:"data"`
}

// PostParams carries the caller side of a resource POST.
type PostParams struct {
	Operation Operation
	Source    string
	// FieldNames overrides the descriptor defaults when non-empty.
	FieldNames []string
	Rows       [][]any
}

// SetUserParams carries a data-source token registration. Secret is optional.
type SetUserParams struct {
	ClientID       string
	ClientSecret   string
	ClientUserID   string
	DataSourceName string
	Token          string
	Secret         string
}

// Builder composes requests against the resource (API) host and the
// management host.
type Builder struct {
	apiURL        string
	managementURL string
}

// NewBuilder creates a Builder. Trailing slashes on either base are ignored.
func NewBuilder(apiURL, managementURL string) *Builder {
	return &Builder{
		apiURL:        strings.TrimRight(apiURL, "/"),
		managementURL: strings.TrimRight(managementURL, "/"),
	}
}

// APIURL returns the resource host base.
func (b *Builder) APIURL() string { return b.apiURL }

// ManagementURL returns the management host base.
func (b *Builder) ManagementURL() string { return b.managementURL }

// Get builds a resource GET for t, narrowed by sel.
func (b *Builder) Get(t ResourceType, version int, sel Selector, accessToken string) (Request, error) {
	base, err := b.resourceURL(t, version)
	if err != nil {
		return Request{}, err
	}
	if err := sel.validate(); err != nil {
		return Request{}, err
	}
	return Request{
		Method: http.MethodGet,
		URL:    base + sel.suffix(),
		Query:  tokenQuery(accessToken),
	}, nil
}

// Post builds a batch insert/update for t. Each row becomes an object holding
// user_code, source and the row values keyed positionally by field name.
func (b *Builder) Post(t ResourceType, version int, p PostParams, userCode, accessToken string) (Request, error) {
	base, err := b.resourceURL(t, version)
	if err != nil {
		return Request{}, err
	}
	if !p.Operation.Valid() {
		return Request{}, fmt.Errorf("%w: %q", ErrInvalidOperation, string(p.Operation))
	}

	d, _ := Lookup(t)
	data, err := batchRows(userCode, p.Source, fieldNames(p.FieldNames, d.defaultFields), p.Rows)
	if err != nil {
		return Request{}, err
	}

	return Request{
		Method: http.MethodPost,
		URL:    base,
		Query:  tokenQuery(accessToken),
		Body:   Batch{Op: p.Operation, Data: data},
	}, nil
}

// Login exchanges a special token and client secret for an access token.
func (b *Builder) Login(clientSecret, specialToken string) (Request, error) {
	if err := required("clientSecret", clientSecret, "specialToken", specialToken); err != nil {
		return Request{}, err
	}
	return Request{
		Method: http.MethodPost,
		URL:    b.managementURL + PathLogin,
		Body: map[string]string{
			"specialToken": specialToken,
			"clientSecret": clientSecret,
		},
	}, nil
}

// CreateUser registers an application user.
func (b *Builder) CreateUser(clientID, clientSecret, clientUserID, clientUserName string) (Request, error) {
	if err := required("clientId", clientID, "clientSecret", clientSecret); err != nil {
		return Request{}, err
	}
	return Request{
		Method: http.MethodPost,
		URL:    b.managementURL + PathCreateUser,
		Body: map[string]string{
			"clientId":       clientID,
			"clientSecret":   clientSecret,
			"clientUserId":   clientUserID,
			"clientUserName": clientUserName,
		},
	}, nil
}

// SetUser attaches a data-source token to an application user.
func (b *Builder) SetUser(p SetUserParams) (Request, error) {
	if err := required(
		"clientId", p.ClientID,
		"clientSecret", p.ClientSecret,
		"dataSourceName", p.DataSourceName,
		"token", p.Token,
	); err != nil {
		return Request{}, err
	}
	body := map[string]string{
		"clientId":       p.ClientID,
		"clientSecret":   p.ClientSecret,
		"clientUserId":   p.ClientUserID,
		"dataSourceName": p.DataSourceName,
		"token":          p.Token,
	}
	if p.Secret != "" {
		body["secret"] = p.Secret
	}
	return Request{
		Method: http.MethodPost,
		URL:    b.managementURL + PathSetUser,
		Body:   body,
	}, nil
}

// DeleteUser removes the user identified by userCode from the client application.
func (b *Builder) DeleteUser(clientID, userCode string) (Request, error) {
	if err := required("clientId", clientID, "ziva_user_code", userCode); err != nil {
		return Request{}, err
	}
	return Request{
		Method: http.MethodDelete,
		URL:    b.managementURL + fmt.Sprintf(pathDeleteUser, clientID, userCode),
	}, nil
}

// RefreshToken requests a new access token for the client.
func (b *Builder) RefreshToken(clientID, clientSecret string) (Request, error) {
	if err := required("clientId", clientID, "clientSecret", clientSecret); err != nil {
		return Request{}, err
	}
	return Request{
		Method: http.MethodGet,
		URL:    b.managementURL + PathRefresh,
		Query: url.Values{
			"client_id":     {clientID},
			"client_secret": {clientSecret},
			"grant_type":    {"refresh_token"},
			"refresh_token": {RefreshTokenPlaceholder},
		},
	}, nil
}

func (b *Builder) resourceURL(t ResourceType, version int) (string, error) {
	if _, err := Lookup(t); err != nil {
		return "", err
	}
	if version < 1 {
		return "", fmt.Errorf("%w: %d", ErrInvalidVersion, version)
	}
	return b.apiURL + "/api/v" + strconv.Itoa(version) + "/human/" + string(t), nil
}

// fieldNames picks the caller's names when any are supplied.
func fieldNames(supplied, defaults []string) []string {
	if len(supplied) > 0 {
		return supplied
	}
	return defaults
}

func batchRows(userCode, source string, names []string, rows [][]any) ([]map[string]any, error) {
	data := make([]map[string]any, 0, len(rows))
	for i, row := range rows {
		if len(row) > len(names) {
			return nil, fmt.Errorf("%w: row %d has %d values for %d names", ErrFieldCount, i, len(row), len(names))
		}
		obj := make(map[string]any, len(row)+2)
		obj["user_code"] = userCode
		obj["source"] = source
		for j, v := range row {
			obj[names[j]] = v
		}
		data = append(data, obj)
	}
	return data, nil
}

func tokenQuery(accessToken string) url.Values {
	return url.Values{"access_token": {accessToken}}
}

// required takes name/value pairs and reports the first empty value.
func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return fmt.Errorf("%w: %s", ErrMissingArgument, pairs[i])
		}
	}
	return nil
}
