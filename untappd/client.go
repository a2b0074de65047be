// Package untappd provides a client for the subset of the untappd v4 api used by beerscot:
// friend and user activity, beer and brewery lookups, toasts and friendship management.
//
// Application-level errors reported by the api in a response's meta section are returned as
// *Error values. Transport and decoding failures are returned as wrapped errors.
package untappd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// DefaultBaseURL is the base url of the untappd v4 api
	DefaultBaseURL = "https://api.untappd.com/v4"
	// DefaultTimeout is the timeout applied to every api call unless overridden
	DefaultTimeout = 10 * time.Second
)

// API is the set of untappd operations
type API interface {
	FriendActivity(ctx context.Context, limit int) (checkins []Checkin, err error)
	UserActivity(ctx context.Context, username string, limit int) (checkins []Checkin, err error)
	UserInfo(ctx context.Context, username string) (user *User, err error)
	OwnInfo(ctx context.Context) (user *User, err error)
	SearchBeer(ctx context.Context, query string, limit int) (beers []Beer, err error)
	BeerInfo(ctx context.Context, id int64) (beer *Beer, err error)
	SearchBrewery(ctx context.Context, query string, limit int) (breweries []Brewery, err error)
	BreweryInfo(ctx context.Context, id int64) (brewery *Brewery, err error)
	PendingFriends(ctx context.Context) (users []User, err error)
	AcceptFriend(ctx context.Context, targetID int64) (user *User, err error)
	RemoveFriend(ctx context.Context, targetID int64) (user *User, err error)
	Friends(ctx context.Context) (users []User, err error)
	Toast(ctx context.Context, checkinID int64) (result *ToastResult, err error)
}

// Client is an http client of the untappd api
type Client struct {
	baseURL      string
	httpClient   *http.Client
	timeout      time.Duration
	clientID     string
	clientSecret string
	accessToken  string
}

// Option defines an option for a Client
type Option func(*Client)

// OptionBaseURL sets the base url of the api (useful for testing)
func OptionBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// OptionHTTPClient sets the http client used to call the api
func OptionHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// OptionTimeout sets the timeout of every api call. A timeout of 0 means only the caller's
// context bounds the call
func OptionTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// New creates a new Client authenticating with the given application credentials and user
// access token
func New(clientID string, clientSecret string, accessToken string, options ...Option) (c *Client, err error) {
	c = &Client{baseURL: DefaultBaseURL, httpClient: http.DefaultClient, timeout: DefaultTimeout, clientID: clientID, clientSecret: clientSecret, accessToken: accessToken}

	for _, opt := range options {
		opt(c)
	}

	if _, err = url.ParseRequestURI(c.baseURL); err != nil {
		return nil, errors.Wrapf(err, "invalid untappd base url [%s]", c.baseURL)
	}

	return c, nil
}

// meta is the status section included in every api response
type meta struct {
	Code        int    `json:"code"`
	ErrorType   string `json:"error_type"`
	ErrorDetail string `json:"error_detail"`
}

type envelope struct {
	Meta     meta            `json:"meta"`
	Response json.RawMessage `json:"response"`
}

type checkinsResponse struct {
	Checkins struct {
		Items []Checkin `json:"items"`
	} `json:"checkins"`
}

type userResponse struct {
	User User `json:"user"`
}

type targetUserResponse struct {
	TargetUser User `json:"target_user"`
}

type userItemsResponse struct {
	Items []struct {
		User User `json:"user"`
	} `json:"items"`
}

type beerSearchResponse struct {
	Beers struct {
		Items []struct {
			Beer    Beer    `json:"beer"`
			Brewery Brewery `json:"brewery"`
		} `json:"items"`
	} `json:"beers"`
}

type beerResponse struct {
	Beer Beer `json:"beer"`
}

type brewerySearchResponse struct {
	Brewery struct {
		Items []struct {
			Brewery Brewery `json:"brewery"`
		} `json:"items"`
	} `json:"brewery"`
}

type breweryResponse struct {
	Brewery Brewery `json:"brewery"`
}

// FriendActivity returns the most recent checkins of the authenticated user's friends
func (c *Client) FriendActivity(ctx context.Context, limit int) (checkins []Checkin, err error) {
	var r checkinsResponse
	if err = c.get(ctx, "/checkin/recent", withLimit(url.Values{}, limit), &r); err != nil {
		return nil, err
	}

	return r.Checkins.Items, nil
}

// UserActivity returns the most recent checkins of a user
func (c *Client) UserActivity(ctx context.Context, username string, limit int) (checkins []Checkin, err error) {
	var r checkinsResponse
	if err = c.get(ctx, "/user/checkins/"+url.PathEscape(username), withLimit(url.Values{}, limit), &r); err != nil {
		return nil, err
	}

	return r.Checkins.Items, nil
}

// UserInfo returns a user's profile
func (c *Client) UserInfo(ctx context.Context, username string) (user *User, err error) {
	var r userResponse
	if err = c.get(ctx, "/user/info/"+url.PathEscape(username), url.Values{}, &r); err != nil {
		return nil, err
	}

	return &r.User, nil
}

// OwnInfo returns the profile of the user owning the access token
func (c *Client) OwnInfo(ctx context.Context) (user *User, err error) {
	var r userResponse
	if err = c.get(ctx, "/user/info", url.Values{}, &r); err != nil {
		return nil, err
	}

	return &r.User, nil
}

// SearchBeer returns the beers matching a query. Each beer has its brewery set
func (c *Client) SearchBeer(ctx context.Context, query string, limit int) (beers []Beer, err error) {
	var r beerSearchResponse
	if err = c.get(ctx, "/search/beer", withLimit(url.Values{"q": {query}}, limit), &r); err != nil {
		return nil, err
	}

	beers = make([]Beer, 0, len(r.Beers.Items))
	for _, item := range r.Beers.Items {
		b := item.Beer
		brewery := item.Brewery
		b.Brewery = &brewery
		beers = append(beers, b)
	}

	return beers, nil
}

// BeerInfo returns a beer by id
func (c *Client) BeerInfo(ctx context.Context, id int64) (beer *Beer, err error) {
	var r beerResponse
	if err = c.get(ctx, "/beer/info/"+strconv.FormatInt(id, 10), url.Values{}, &r); err != nil {
		return nil, err
	}

	return &r.Beer, nil
}

// SearchBrewery returns the breweries matching a query
func (c *Client) SearchBrewery(ctx context.Context, query string, limit int) (breweries []Brewery, err error) {
	var r brewerySearchResponse
	if err = c.get(ctx, "/search/brewery", withLimit(url.Values{"q": {query}}, limit), &r); err != nil {
		return nil, err
	}

	breweries = make([]Brewery, 0, len(r.Brewery.Items))
	for _, item := range r.Brewery.Items {
		breweries = append(breweries, item.Brewery)
	}

	return breweries, nil
}

// BreweryInfo returns a brewery by id
func (c *Client) BreweryInfo(ctx context.Context, id int64) (brewery *Brewery, err error) {
	var r breweryResponse
	if err = c.get(ctx, "/brewery/info/"+strconv.FormatInt(id, 10), url.Values{}, &r); err != nil {
		return nil, err
	}

	return &r.Brewery, nil
}

// PendingFriends returns the users waiting for the authenticated user to accept their friend request
func (c *Client) PendingFriends(ctx context.Context) (users []User, err error) {
	var r userItemsResponse
	if err = c.get(ctx, "/user/pending", url.Values{}, &r); err != nil {
		return nil, err
	}

	return r.users(), nil
}

// Friends returns the authenticated user's friends
func (c *Client) Friends(ctx context.Context) (users []User, err error) {
	var r userItemsResponse
	if err = c.get(ctx, "/user/friends", url.Values{}, &r); err != nil {
		return nil, err
	}

	return r.users(), nil
}

// AcceptFriend accepts the pending friend request of a user and returns that user
func (c *Client) AcceptFriend(ctx context.Context, targetID int64) (user *User, err error) {
	var r targetUserResponse
	if err = c.do(ctx, http.MethodPost, "/friend/accept/"+strconv.FormatInt(targetID, 10), url.Values{}, &r); err != nil {
		return nil, err
	}

	return &r.TargetUser, nil
}

// RemoveFriend removes a user from the authenticated user's friends. The returned user is
// empty when the api doesn't echo the removed friend
func (c *Client) RemoveFriend(ctx context.Context, targetID int64) (user *User, err error) {
	var r targetUserResponse
	if err = c.get(ctx, "/friend/remove/"+strconv.FormatInt(targetID, 10), url.Values{}, &r); err != nil {
		return nil, err
	}

	return &r.TargetUser, nil
}

// Toast toasts a checkin
func (c *Client) Toast(ctx context.Context, checkinID int64) (result *ToastResult, err error) {
	result = new(ToastResult)
	if err = c.do(ctx, http.MethodPost, "/checkin/toast/"+strconv.FormatInt(checkinID, 10), url.Values{}, result); err != nil {
		return nil, err
	}

	return result, nil
}

func (r userItemsResponse) users() (users []User) {
	users = make([]User, 0, len(r.Items))
	for _, item := range r.Items {
		users = append(users, item.User)
	}

	return users
}

func withLimit(params url.Values, limit int) url.Values {
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	return params
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) (err error) {
	return c.do(ctx, http.MethodGet, path, params, out)
}

// do calls the api and decodes the response section of the reply into out
func (c *Client) do(ctx context.Context, method string, path string, params url.Values, out interface{}) (err error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.authenticate(params)
	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return errors.Wrapf(err, "error creating request [%s %s]", method, path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "error calling untappd [%s %s]", method, path)
	}
	defer resp.Body.Close()

	var env envelope
	if err = json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &Error{Code: resp.StatusCode, Type: "http_error", Detail: http.StatusText(resp.StatusCode)}
		}

		return errors.Wrapf(err, "error decoding response of [%s %s]", method, path)
	}

	if env.Meta.ErrorDetail != "" || resp.StatusCode != http.StatusOK {
		code := env.Meta.Code
		if code == 0 {
			code = resp.StatusCode
		}

		detail := env.Meta.ErrorDetail
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}

		return &Error{Code: code, Type: env.Meta.ErrorType, Detail: detail}
	}

	// Some endpoints reply with an empty array when they have nothing to report
	if raw := bytes.TrimSpace(env.Response); len(raw) == 0 || bytes.Equal(raw, []byte("[]")) || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	if err = json.Unmarshal(env.Response, out); err != nil {
		return errors.Wrapf(err, "error decoding response of [%s %s]", method, path)
	}

	return nil
}

func (c *Client) authenticate(params url.Values) {
	if c.clientID != "" {
		params.Set("client_id", c.clientID)
	}

	if c.clientSecret != "" {
		params.Set("client_secret", c.clientSecret)
	}

	if c.accessToken != "" {
		params.Set("access_token", c.accessToken)
	}
}
