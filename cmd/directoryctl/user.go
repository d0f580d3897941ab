package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/noah-isme/academic-directory-api/internal/models"
	"github.com/noah-isme/academic-directory-api/internal/repository"
	"github.com/noah-isme/academic-directory-api/internal/service"
)

const passwordEnv = "DIRECTORYCTL_PASSWORD"

// createUserCommand bootstraps accounts that self-registration cannot create.
func createUserCommand() *cobra.Command {
	var req service.CreateUserRequest
	var role string
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create an administrator, moderator or member account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt := fromContext(cmd.Context())
			if req.Password == "" {
				req.Password = os.Getenv(passwordEnv)
			}
			if req.Password == "" {
				return fmt.Errorf("password required: pass --password or set %s", passwordEnv)
			}
			req.Role = models.UserRole(role)

			db, err := rt.openDB()
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			svc := service.NewUserService(repository.NewUserRepository(db), validator.New(), rt.logger)
			user, err := svc.Create(cmd.Context(), req, "", models.RequestMeta{UserAgent: programName})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.Role, user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.FullName, "name", "", "full name")
	cmd.Flags().StringVar(&role, "role", string(models.RoleAdmin), "ADMIN, MODERATOR or MEMBER")
	cmd.Flags().StringVar(&req.Password, "password", "", "password, defaults to $"+passwordEnv)
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
