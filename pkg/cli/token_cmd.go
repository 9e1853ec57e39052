package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"tabula/internal/config"
)

func newTokenCmd() *cobra.Command {
	var (
		subject string
		secret  string
		email   string
		expires time.Duration
		save    bool
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Generate a development JWT",
		Long:  "Generate an HS256 JWT signed with the server's shared secret. With --save the token is stored in the active profile.",
		Example: `  # Token for alice with the default dev secret
  tabula token --sub alice

  # Store a one-week token in the active profile
  tabula token --sub alice --secret mysecret --expires 168h --save`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			signed, err := signToken(subject, email, secret, expires, time.Now())
			if err != nil {
				return err
			}

			var profile string
			if save {
				profile, err = saveToken(signed)
				if err != nil {
					return err
				}
			}

			if getOutputFormat(cmd) == "json" {
				out := map[string]string{"token": signed}
				if profile != "" {
					out["profile"] = profile
				}
				return PrintJSON(os.Stdout, out)
			}
			_, _ = fmt.Fprintln(os.Stdout, signed)
			if profile != "" {
				_, _ = fmt.Fprintf(os.Stderr, "Token saved to profile %q\n", profile)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "sub", "", "Subject (user ID) of the token (required)")
	cmd.Flags().StringVar(&secret, "secret", config.DevJWTSecret, "HS256 signing secret")
	cmd.Flags().StringVar(&email, "email", "", "Optional email claim")
	cmd.Flags().DurationVar(&expires, "expires", 24*time.Hour, "Token lifetime")
	cmd.Flags().BoolVar(&save, "save", false, "Save the token to the active profile")
	_ = cmd.MarkFlagRequired("sub")

	return cmd
}

func signToken(subject, email, secret string, expires time.Duration, now time.Time) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("subject must not be empty")
	}
	if secret == "" {
		return "", fmt.Errorf("secret must not be empty")
	}
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(expires).Unix(),
	}
	if email != "" {
		claims["email"] = email
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
