package main

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/Checker-Finance/ziva-sdk/internal/endpoint"
	"github.com/Checker-Finance/ziva-sdk/pkg/ziva"
)

// requestError is a completed request that ended in OnError.
type requestError struct {
	resp ziva.Response
}

func (e *requestError) Error() string {
	return fmt.Sprintf("request failed with status %d", e.resp.StatusCode)
}

// await bridges the callback API to a blocking call.
type await struct {
	done chan result
}

type result struct {
	ok   bool
	resp ziva.Response
}

func newAwait() *await { return &await{done: make(chan result, 1)} }

func (a *await) OnSuccess(r ziva.Response) { a.done <- result{ok: true, resp: r} }
func (a *await) OnError(r ziva.Response)   { a.done <- result{resp: r} }

// do issues a request through call and prints the successful body.
func do(ctx context.Context, call func(ziva.Callback) error) error {
	a := newAwait()
	if err := call(a); err != nil {
		return err
	}
	select {
	case r := <-a.done:
		if !r.ok {
			return &requestError{resp: r.resp}
		}
		fmt.Println(r.resp.Body)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func cmdLogin(ctx context.Context, client *ziva.Client, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	secret := fs.String("secret", "", "client secret (default: stored)")
	special := fs.String("special-token", "", "special token (default: stored)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return do(ctx, func(cb ziva.Callback) error {
		if *secret == "" && *special == "" {
			return client.LoginStored(ctx, cb)
		}
		return client.Login(ctx, *secret, *special, cb)
	})
}

func cmdCreateUser(ctx context.Context, client *ziva.Client, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	clientID := fs.String("client-id", "", "client id")
	secret := fs.String("secret", "", "client secret")
	userID := fs.String("user-id", "", "client user id")
	userName := fs.String("user-name", "", "client user name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return do(ctx, func(cb ziva.Callback) error {
		if *clientID == "" && *secret == "" {
			return client.CreateUserStored(ctx, cb)
		}
		return client.CreateUser(ctx, *clientID, *secret, *userID, *userName, cb)
	})
}

func cmdSetUser(ctx context.Context, client *ziva.Client, args []string) error {
	fs := flag.NewFlagSet("set-user", flag.ContinueOnError)
	source := fs.String("source", "", "data source name")
	token := fs.String("token", "", "data source token")
	secret := fs.String("secret", "", "data source secret (optional)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return do(ctx, func(cb ziva.Callback) error {
		return client.SetUser(ctx, *source, *token, *secret, cb)
	})
}

func cmdDeleteUser(ctx context.Context, client *ziva.Client, args []string) error {
	fs := flag.NewFlagSet("delete-user", flag.ContinueOnError)
	clientID := fs.String("client-id", "", "client id (default: stored)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return do(ctx, func(cb ziva.Callback) error {
		if *clientID == "" {
			return client.DeleteCurrentUser(ctx, cb)
		}
		return client.DeleteUser(ctx, *clientID, cb)
	})
}

func cmdRefresh(ctx context.Context, client *ziva.Client, args []string) error {
	fs := flag.NewFlagSet("refresh", flag.ContinueOnError)
	clientID := fs.String("client-id", "", "client id (default: stored)")
	secret := fs.String("secret", "", "client secret (default: stored)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return do(ctx, func(cb ziva.Callback) error {
		if *clientID == "" && *secret == "" {
			return client.RefreshStoredToken(ctx, cb)
		}
		return client.RefreshToken(ctx, *clientID, *secret, cb)
	})
}

func cmdGet(ctx context.Context, client *ziva.Client, args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	typ := fs.String("type", "", "resource type ("+resourceList()+")")
	version := fs.Int("version", 1, "endpoint version")
	code := fs.String("code", "", "resource code")
	date := fs.String("date", "", "day (yyyy-MM-dd)")
	from := fs.String("from", "", "period start (yyyy-MM-dd)")
	to := fs.String("to", "", "period end (yyyy-MM-dd)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sel, err := selector(*code, *date, *from, *to)
	if err != nil {
		return err
	}
	return do(ctx, func(cb ziva.Callback) error {
		return client.Get(ctx, ziva.ResourceType(*typ), *version, sel, cb)
	})
}

func cmdPost(ctx context.Context, client *ziva.Client, args []string) error {
	fs := flag.NewFlagSet("post", flag.ContinueOnError)
	typ := fs.String("type", "", "resource type ("+resourceList()+")")
	version := fs.Int("version", 1, "endpoint version")
	op := fs.String("op", string(ziva.OpInsert), "insert or update")
	source := fs.String("source", "", "data source")
	fields := fs.String("fields", "", "comma-separated field names (default: per-type)")
	rows := fs.String("rows", "", `JSON array of rows, e.g. [["2015-06-22","9000","UTC"]]`)
	if err := fs.Parse(args); err != nil {
		return err
	}

	var data [][]any
	if err := json.Unmarshal([]byte(*rows), &data); err != nil {
		return fmt.Errorf("parse -rows: %w", err)
	}
	var names []string
	if *fields != "" {
		names = strings.Split(*fields, ",")
	}
	return do(ctx, func(cb ziva.Callback) error {
		return client.Post(ctx, ziva.ResourceType(*typ), *version, ziva.PostParams{
			Operation:  ziva.Operation(*op),
			Source:     *source,
			FieldNames: names,
			Rows:       data,
		}, cb)
	})
}

// selector picks at most one of code, date or period.
func selector(code, date, from, to string) (ziva.Selector, error) {
	switch {
	case code != "":
		return ziva.ByCode(code), nil
	case date != "":
		d, err := time.Parse(endpoint.DateLayout, date)
		if err != nil {
			return ziva.Selector{}, fmt.Errorf("parse -date: %w", err)
		}
		return ziva.ByDate(d), nil
	case from != "" || to != "":
		start, err := time.Parse(endpoint.DateLayout, from)
		if err != nil {
			return ziva.Selector{}, fmt.Errorf("parse -from: %w", err)
		}
		end, err := time.Parse(endpoint.DateLayout, to)
		if err != nil {
			return ziva.Selector{}, fmt.Errorf("parse -to: %w", err)
		}
		return ziva.ByPeriod(start, end), nil
	default:
		return ziva.All(), nil
	}
}

func resourceList() string {
	types := ziva.ResourceTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
