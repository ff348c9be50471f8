package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/db"
	infraRepo "storefront/internal/infra/repository"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"
	"storefront/internal/validator"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update all tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.close()
			if err := db.Migrate(e.db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrated")
			return nil
		},
	}
}

func newCreateAdminCmd() *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email = validator.NormalizeEmail(email)
			if err := validator.ValidateRegister(email, password, name); err != nil {
				return err
			}
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.close()

			users := infraRepo.NewUserGormRepository(e.db)
			auth := usecase.NewAuthUsecase(usecase.AuthSettings{JWTSecret: e.cfg.JWTSecret}, users, nil, nil, e.runtime())
			u, err := auth.NewUser(email, password, name, model.RoleAdmin)
			if err != nil {
				return err
			}
			if err := users.Create(cmd.Context(), u); err != nil {
				if errors.Is(err, repo.ErrConflict) {
					return fmt.Errorf("email already registered: %s", email)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newImportProductsCmd() *cobra.Command {
	var file, as string
	cmd := &cobra.Command{
		Use:   "import-products",
		Short: "Upsert products from an xlsx sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			e, err := setup()
			if err != nil {
				return err
			}
			defer e.close()

			actor, err := adminActor(cmd, e, as)
			if err != nil {
				return err
			}
			uc := usecase.NewImportUsecase(infraRepo.NewTxManagerGorm(e.db), e.runtime())
			res, err := uc.ImportProducts(cmd.Context(), actor, f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "created=%d updated=%d errors=%d\n", res.Created, res.Updated, len(res.Errors))
			for _, re := range res.Errors {
				fmt.Fprintf(out, "  row %d: %s\n", re.Row, re.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "xlsx file")
	cmd.Flags().StringVar(&as, "as", "", "admin email recorded in the audit log")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

func newExportOrdersCmd() *cobra.Command {
	var out, as, status, from, to string
	cmd := &cobra.Command{
		Use:   "export-orders",
		Short: "Write orders to an xlsx file",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := usecase.ExportOrdersInput{Status: status}
			var err error
			if in.From, err = parseDate(from); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if in.To, err = parseDate(to); err != nil {
				return fmt.Errorf("--to: %w", err)
			}

			e, err := setup()
			if err != nil {
				return err
			}
			defer e.close()

			actor, err := adminActor(cmd, e, as)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()

			uc := usecase.NewExportUsecase(
				infraRepo.NewOrderGormRepository(e.db),
				infraRepo.NewOrderItemGormRepository(e.db),
				infraRepo.NewUserGormRepository(e.db),
				e.runtime(),
			)
			if err := uc.Orders(cmd.Context(), actor, in, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "orders.xlsx", "output file")
	cmd.Flags().StringVar(&as, "as", "", "admin email")
	cmd.Flags().StringVar(&status, "status", "", "order status filter")
	cmd.Flags().StringVar(&from, "from", "", "YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

// --asのユーザーが有効な管理者であること
func adminActor(cmd *cobra.Command, e *env, email string) (usecase.Actor, error) {
	users := infraRepo.NewUserGormRepository(e.db)
	u, err := users.FindByEmail(cmd.Context(), validator.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return usecase.Actor{}, fmt.Errorf("user not found: %s", email)
		}
		return usecase.Actor{}, err
	}
	if !u.IsAdmin() || !u.IsActive {
		return usecase.Actor{}, fmt.Errorf("%s is not an active admin", email)
	}
	return usecase.Actor{UserID: u.ID, Role: u.Role}, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
