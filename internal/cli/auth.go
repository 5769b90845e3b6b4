package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/existflow/taskboard/internal/service"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication",
	Long:  `Log in to a taskboard server, create an account or switch servers.`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the server",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE:  runLogout,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account on the server",
	RunE:  runRegister,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the server and logged in user",
	RunE:  runStatus,
}

var serverCmd = &cobra.Command{
	Use:   "server [url]",
	Short: "Set the server URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runServer,
}

func init() {
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(registerCmd)
	authCmd.AddCommand(statusCmd)
	authCmd.AddCommand(serverCmd)
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptPassword(label string) string {
	fmt.Print(label)
	b, _ := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	return string(b)
}

func runLogin(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	email := prompt(reader, "Email: ")
	password := promptPassword("Password: ")

	fmt.Println("🔄 Logging in...")
	user, err := c.Login(context.Background(), service.LoginInput{Email: email, Password: password})
	if err != nil {
		return err
	}

	fmt.Printf("✅ Logged in as %s\n", user.Name)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	if !c.IsLoggedIn() {
		fmt.Println("Not logged in.")
		return nil
	}

	if err := c.Logout(); err != nil {
		return err
	}
	fmt.Println("✅ Logged out.")
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	name := prompt(reader, "Name: ")
	email := prompt(reader, "Email: ")
	password := promptPassword("Password: ")
	confirm := promptPassword("Confirm Password: ")

	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	fmt.Println("🔄 Creating account...")
	user, err := c.Register(context.Background(), service.RegisterInput{Name: name, Email: email, Password: password})
	if err != nil {
		return err
	}

	fmt.Printf("✅ Account created, logged in as %s\n", user.Name)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}

	s := c.Settings()
	fmt.Printf("Server:  %s\n", s.ServerURL)
	if !c.IsLoggedIn() {
		fmt.Println("User:    not logged in")
		return nil
	}

	user, err := c.Me(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("User:    %s <%s>\n", user.Name, user.Email)
	fmt.Printf("Role:    %s\n", user.Role)
	return nil
}

func runServer(cmd *cobra.Command, args []string) error {
	c, err := newClient()
	if err != nil {
		return err
	}
	if err := c.SetServer(args[0]); err != nil {
		return err
	}
	fmt.Printf("🌐 Server set to %s\n", c.Settings().ServerURL)
	return nil
}
