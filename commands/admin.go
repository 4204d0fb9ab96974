package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"simpus/models"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

var (
	adminEmail string
	adminName  string
	adminRole  string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create a staff account",
	Long: `Create an assistant or admin account. Registration through the API only
creates members, so staff accounts are made here.

The password is read from the terminal without echo, or from the first line
of stdin when it is not a terminal.

Examples:
  simpus create-admin --email admin@simpus.local --name "Admin"
  simpus create-admin --email staff@simpus.local --name "Staff" --role assistant`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCreateAdmin(cmd.Context())
	},
}

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Email of the new account (required)")
	createAdminCmd.Flags().StringVar(&adminName, "name", "", "Display name (required)")
	createAdminCmd.Flags().StringVar(&adminRole, "role", string(models.RoleAdmin), "Role: admin or assistant")
	createAdminCmd.MarkFlagRequired("email")
	createAdminCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(createAdminCmd)
}

func runCreateAdmin(ctx context.Context) error {
	role := models.Role(adminRole)
	if role != models.RoleAdmin && role != models.RoleAssistant {
		return fmt.Errorf("role must be admin or assistant, got %q", adminRole)
	}

	password, err := readPassword(os.Stdin)
	if err != nil {
		return err
	}
	if err := checkPassword(password); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	u, err := st.CreateUser(ctx, adminName, adminEmail, string(hash), role)
	if err != nil {
		return err
	}
	Success("Created %s %s (%s)", u.Role, u.Email, u.ID)
	return nil
}

// readPassword prompts on a terminal, otherwise it takes the first line of in.
func readPassword(in *os.File) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		fmt.Print("Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return firstLine(in)
}

func firstLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func checkPassword(p string) error {
	if len(p) < 6 {
		return errors.New("password must be at least 6 characters")
	}
	if len(p) > models.MaxPasswordBytes {
		return fmt.Errorf("password must be at most %d bytes", models.MaxPasswordBytes)
	}
	return nil
}
