package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jhoicas/retail-suggestions/pkg/jwt"
)

var (
	tokenRole       string
	tokenRetailerID string
	tokenUserID     string
	tokenMinutes    int
)

// tokenCmd emite tokens firmados para integraciones (el servicio no gestiona usuarios).
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Emite un JWT de acceso para un minorista o un administrador",
	Example: `  suggestions-job token --role admin
  suggestions-job token --role retailer --retailer-id R-0001 --minutes 1440`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		switch tokenRole {
		case jwt.RoleAdmin:
		case jwt.RoleRetailer:
			if tokenRetailerID == "" {
				return fmt.Errorf("--retailer-id es requerido para el rol retailer")
			}
		default:
			return fmt.Errorf("rol inválido: %q (admin | retailer)", tokenRole)
		}
		userID := tokenUserID
		if userID == "" {
			userID = uuid.New().String()
		}
		minutes := tokenMinutes
		if minutes <= 0 {
			minutes = cfg.JWT.Expiration
		}
		tok, err := jwt.Generate(cfg.JWT.Secret, userID, tokenRetailerID, tokenRole, cfg.JWT.Issuer, minutes)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringVar(&tokenRole, "role", jwt.RoleRetailer, "admin | retailer")
	tokenCmd.Flags().StringVar(&tokenRetailerID, "retailer-id", "", "minorista dueño del token (rol retailer)")
	tokenCmd.Flags().StringVar(&tokenUserID, "user-id", "", "sujeto del token (por defecto un UUID nuevo)")
	tokenCmd.Flags().IntVar(&tokenMinutes, "minutes", 0, "vigencia en minutos (por defecto JWT_EXPIRATION_MINUTES)")
}
