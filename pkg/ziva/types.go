package ziva

import (
	"github.com/Checker-Finance/ziva-sdk/internal/cache"
	"github.com/Checker-Finance/ziva-sdk/internal/credentials"
	"github.com/Checker-Finance/ziva-sdk/internal/dispatch"
	"github.com/Checker-Finance/ziva-sdk/internal/endpoint"
	"github.com/Checker-Finance/ziva-sdk/internal/httpclient"
)

type (
	Response      = dispatch.Response
	Callback      = dispatch.Callback
	CallbackFuncs = dispatch.CallbackFuncs
	Cache         = cache.Cache
	Field         = credentials.Field
	ResourceType  = endpoint.ResourceType
	Selector      = endpoint.Selector
	Operation     = endpoint.Operation
	PostParams    = endpoint.PostParams
	Policy        = httpclient.Policy
)

// ErrMissingArgument is returned when a management call lacks a required
// argument, whether passed in or read from the stored credentials.
var ErrMissingArgument = endpoint.ErrMissingArgument

// Credential fields.
const (
	AccessToken    = credentials.AccessToken
	ClientID       = credentials.ClientID
	ClientSecret   = credentials.ClientSecret
	ClientUserID   = credentials.ClientUserID
	ClientUserName = credentials.ClientUserName
	SpecialToken   = credentials.SpecialToken
	ZivaUserCode   = credentials.ZivaUserCode
)

// Batch operations.
const (
	OpInsert = endpoint.OpInsert
	OpUpdate = endpoint.OpUpdate
)

// Resource types.
const (
	Profile          = endpoint.Profile
	Activities       = endpoint.Activities
	BloodGlucoses    = endpoint.BloodGlucoses
	BloodOxygens     = endpoint.BloodOxygens
	BloodPressures   = endpoint.BloodPressures
	Falls            = endpoint.Falls
	BodyFats         = endpoint.BodyFats
	BMIs             = endpoint.BMIs
	Genetics         = endpoint.Genetics
	HeartRates       = endpoint.HeartRates
	Heights          = endpoint.Heights
	Locations        = endpoint.Locations
	Meals            = endpoint.Meals
	RespirationRates = endpoint.RespirationRates
	Sleeps           = endpoint.Sleeps
	SleepSummary     = endpoint.SleepSummary
	Steps            = endpoint.Steps
	Weights          = endpoint.Weights
)

// Selectors.
var (
	All      = endpoint.All
	ByCode   = endpoint.ByCode
	ByDate   = endpoint.ByDate
	ByPeriod = endpoint.ByPeriod
)

// ResourceTypes lists every supported resource type.
func ResourceTypes() []ResourceType { return endpoint.ResourceTypes() }

// DefaultPolicy is the per-request retry policy used unless overridden.
func DefaultPolicy() Policy { return httpclient.DefaultPolicy() }
