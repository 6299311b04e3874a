package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	identityDomain "github.com/allisson/restgate/internal/identity/domain"
	identityUseCase "github.com/allisson/restgate/internal/identity/usecase"
)

// RunCreateUser registers a user directly in the store and prints the user and
// an access token. attributesJSON is an optional JSON object of extra fields.
func RunCreateUser(
	ctx context.Context,
	userUseCase identityUseCase.UserUseCase,
	logger *slog.Logger,
	email string,
	password string,
	attributesJSON string,
	format string,
	io IOTuple,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	var attributes map[string]any
	if attributesJSON != "" {
		if err := json.Unmarshal([]byte(attributesJSON), &attributes); err != nil {
			return fmt.Errorf("failed to parse attributes JSON: %w", err)
		}
	}

	logger.Info("creating user", slog.String("email", email))

	result, err := userUseCase.Register(ctx, &identityDomain.RegisterInput{
		Email:      email,
		Password:   password,
		Attributes: attributes,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	if format == "json" {
		if err := writeJSON(io.Writer, map[string]any{
			"user":        result.User.Public(),
			"accessToken": result.AccessToken,
			"expiresAt":   result.ExpiresAt,
		}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintln(io.Writer, "\nUser created successfully!")
		_, _ = fmt.Fprintf(io.Writer, "User ID: %s\n", result.User.ID)
		_, _ = fmt.Fprintf(io.Writer, "Email: %s\n", result.User.Email)
		_, _ = fmt.Fprintf(io.Writer, "Access token: %s\n", result.AccessToken)
	}

	logger.Info("user created successfully", slog.String("user_id", result.User.ID))
	return nil
}
