package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"peak_pulse/internal/config"
	"peak_pulse/internal/db"
	"peak_pulse/internal/domain"
	"peak_pulse/internal/summary"
	"peak_pulse/internal/utils"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// ErrUserNotFound is returned when no account matches the given email
var ErrUserNotFound = errors.New("user not found")

// Register adds every peakctl sub-command to rootCmd.
func Register(rootCmd *cobra.Command) {
	rootCmd.AddCommand(migrateCmd(), seedCmd(), promoteCmd(), summarizeCmd())
}

// openDB loads configuration, sets up logging and connects to the database.
func openDB() (*config.Config, *gorm.DB, error) {
	cfg := config.LoadConfig()
	if err := utils.SetupLogger(utils.LogOptions{Level: cfg.LogLevel}); err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	database, err := db.Connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, database, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, database, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close(database)
			if err := db.Migrate(database); err != nil {
				return err
			}
			cmd.Println("schema up to date")
			return nil
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert default categories, payment gateways and settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, database, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close(database)
			if err := db.Seed(database); err != nil {
				return err
			}
			cmd.Println("defaults seeded")
			return nil
		},
	}
}

func promoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Change the role of an account",
		Example: `  peakctl promote --email owner@peakpulse.com --role admin
  peakctl promote --email writer@peakpulse.com --role editor`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, err := cmd.Flags().GetString("email")
			if err != nil {
				return err
			}
			role, err := cmd.Flags().GetString("role")
			if err != nil {
				return err
			}
			_, database, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close(database)
			user, err := PromoteUser(database, email, role)
			if err != nil {
				return err
			}
			cmd.Printf("%s is now %s\n", user.Email, user.Role)
			return nil
		},
	}
	cmd.Flags().String("email", "", "Email of the account to change")
	cmd.Flags().String("role", domain.RoleAdmin, "New role: user, editor or admin")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func summarizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Generate AI summaries for products",
		Long: `summarize fills the ai_summary of products that have none.
With --all every product is summarised again.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, err := cmd.Flags().GetBool("all")
			if err != nil {
				return err
			}
			cfg, database, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close(database)
			s := summary.New(cfg.AIEndpoint, cfg.AIKey, cfg.AIModel)
			n, err := SummarizeProducts(cmd.Context(), database, s, all)
			if err != nil {
				return err
			}
			cmd.Printf("summarised %d products\n", n)
			return nil
		},
	}
	cmd.Flags().Bool("all", false, "Regenerate summaries that already exist")
	return cmd
}

// PromoteUser sets the role of the account with the given email.
func PromoteUser(database *gorm.DB, email, role string) (*domain.User, error) {
	if !domain.ValidRole(role) {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	var user domain.User
	email = strings.ToLower(strings.TrimSpace(email))
	if err := database.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", email, ErrUserNotFound)
		}
		return nil, err
	}
	if err := database.Model(&user).Update("role", role).Error; err != nil {
		return nil, err
	}
	user.Role = role
	logrus.WithFields(logrus.Fields{"email": email, "role": role}).Info("Role changed from CLI")
	return &user, nil
}

// SummarizeProducts stores a summary for each product missing one, or for
// every product when all is set. It returns how many were written.
func SummarizeProducts(ctx context.Context, database *gorm.DB, s summary.Summarizer, all bool) (int, error) {
	query := database.Model(&domain.Product{})
	if !all {
		query = query.Where("ai_summary = ? OR ai_summary IS NULL", "")
	}
	var products []domain.Product
	if err := query.Order("id ASC").Find(&products).Error; err != nil {
		return 0, err
	}
	written := 0
	for _, p := range products {
		text, err := s.Summarize(ctx, p.Name, p.Description)
		if errors.Is(err, summary.ErrEmptyText) {
			continue // Nothing to summarise yet
		}
		if err != nil {
			return written, fmt.Errorf("product %d: %w", p.ID, err)
		}
		if err := database.Model(&domain.Product{}).Where("id = ?", p.ID).Update("ai_summary", text).Error; err != nil {
			return written, err
		}
		written++
	}
	logrus.WithFields(logrus.Fields{"products": written, "all": all}).Info("Product summaries generated")
	return written, nil
}
