package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"
)

var generateSecretFlags struct {
	Length int
}

var generateSecretCmd = &cobra.Command{
	Use:   "generate-secret",
	Short: "Generate a random secret for signing tokens",
	Long: `Generate a random secret for signing identity tokens.

Add the generated secret to your configuration file under the auth section.`,
	RunE: generateSecret,
}

func init() {
	generateSecretCmd.Flags().IntVar(&generateSecretFlags.Length, "length", 32, "Number of random bytes")
	rootCmd.AddCommand(generateSecretCmd)
}

func generateSecret(cmd *cobra.Command, args []string) error {
	if generateSecretFlags.Length < 16 {
		return fmt.Errorf("length must be at least 16 bytes")
	}

	buf := make([]byte, generateSecretFlags.Length)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("failed to generate secret: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(buf)

	fmt.Println("Generated token signing secret:")
	fmt.Println()
	fmt.Printf("  %s\n", secret)
	fmt.Println()
	fmt.Println("Add it to your configuration file:")
	fmt.Println()
	fmt.Println("auth:")
	fmt.Printf("  jwt_secret: \"%s\"\n", secret)
	fmt.Println()
	fmt.Println("Note: Changing the secret invalidates every issued token!")

	return nil
}
