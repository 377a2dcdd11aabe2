package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// ErrNoCredentials means no project id and no credentials were given
var ErrNoCredentials = errors.New("no firebase credentials configured")

// NewFirebaseApp initializes the Firebase app shared by Firestore and FCM.
// Base64 credentials are for cloud deployments (Railway, Fly.io, Render) where
// uploading a file is awkward; they win over the file when both are set.
func NewFirebaseApp(ctx context.Context, projectID, credentialsFile, credentialsBase64 string) (*firebase.App, error) {
	var opts []option.ClientOption
	switch {
	case credentialsBase64 != "":
		credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
		if err != nil {
			return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(credentialsJSON))
	case credentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	case projectID == "":
		return nil, ErrNoCredentials
	}
	// With only a project id, application default credentials (or the
	// Firestore emulator) are used

	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}
	return app, nil
}
