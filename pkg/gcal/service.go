package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/AyushChatto/mastercal-sync/internal/config"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// NewService builds an authenticated Google Calendar client from desktop
// OAuth credentials. The token file is created by an interactive flow on
// first use and refreshed in place afterwards.
func NewService(ctx context.Context, cfg config.Google, loc *time.Location) (*GoogleClient, error) {
	log.Debug("initializing Google Calendar service")

	secrets, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		err := fmt.Errorf("unable to read Google credentials file %s: %v", cfg.CredentialsFile, err)
		log.Error(err)
		return nil, err
	}
	oauthConfig, err := google.ConfigFromJSON(secrets, calendar.CalendarEventsScope)
	if err != nil {
		err := fmt.Errorf("unable to parse Google credentials file: %v", err)
		log.Error(err)
		return nil, err
	}

	token, err := tokenFromFile(cfg.TokenFile)
	if err != nil {
		log.Infof("token file %s missing or unreadable, starting OAuth flow", cfg.TokenFile)
		token, err = tokenFromPrompt(ctx, oauthConfig)
		if err != nil {
			return nil, err
		}
		if err := saveToken(cfg.TokenFile, token); err != nil {
			return nil, err
		}
	}

	source := oauthConfig.TokenSource(ctx, token)
	refreshed, err := source.Token()
	if err != nil {
		err := fmt.Errorf("unable to refresh Google token: %v", err)
		log.Error(err)
		return nil, err
	}
	if refreshed.AccessToken != token.AccessToken {
		log.Debugf("Google token refreshed, rewriting %s", cfg.TokenFile)
		if err := saveToken(cfg.TokenFile, refreshed); err != nil {
			return nil, err
		}
	}

	service, err := calendar.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, source)))
	if err != nil {
		err := fmt.Errorf("unable to create Calendar client: %v", err)
		log.Error(err)
		return nil, err
	}
	log.Debug("Google Calendar service ready")
	return NewGoogleClient(service, cfg.CalendarID, loc), nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, err
	}
	return token, nil
}

// tokenFromPrompt runs the installed-application flow: the user opens the
// printed URL in a browser and pastes the resulting code back.
func tokenFromPrompt(ctx context.Context, oauthConfig *oauth2.Config) (*oauth2.Token, error) {
	url := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Open the following link in your browser, then paste the authorization code:\n%v\n", url)

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return nil, fmt.Errorf("unable to read authorization code: %v", err)
	}
	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		err := fmt.Errorf("unable to exchange authorization code for token: %v", err)
		log.Error(err)
		return nil, err
	}
	return token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to write token file %s: %v", path, err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
