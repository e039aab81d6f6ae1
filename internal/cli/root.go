package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the atm command tree.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "atm",
		Short:         "Terminal de caja de ATM Ricky Rich",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(app.Out)

	root.AddCommand(
		loginCmd(app),
		logoutCmd(app),
		whoamiCmd(app),
		pingCmd(app),
		dashboardCmd(app),
		watchCmd(app),
		transaccionesCmd(app),
		logsCmd(app),
		cashoutCmd(app),
		retiroCmd(app),
		carteraCmd(app),
		reporteCmd(app),
		usuariosCmd(app),
		categoriasCmd(app),
	)
	return root
}

func loginCmd(app *App) *cobra.Command {
	var username, pin string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Inicia sesión con usuario y PIN",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if username == "" {
				if username, err = app.prompt.Ask("Usuario"); err != nil {
					return err
				}
			}
			if pin == "" {
				if pin, err = app.prompt.Ask("PIN"); err != nil {
					return err
				}
			}
			s, err := app.Users.Login(cmd.Context(), username, pin)
			if err != nil {
				return err
			}
			app.printf("Bienvenido, %s (%s)\n", firstNonEmpty(s.DisplayName, s.Username), s.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "usuario", "u", "", "nombre de usuario")
	cmd.Flags().StringVar(&pin, "pin", "", "PIN (se pregunta si se omite)")
	return cmd
}

func logoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Cierra la sesión",
		RunE: func(*cobra.Command, []string) error {
			if err := app.Users.Logout(); err != nil {
				return err
			}
			app.printf("Sesión cerrada\n")
			return nil
		},
	}
}

func whoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Muestra el operador actual",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := app.requireSession()
			if err != nil {
				return err
			}
			app.printf("%s (%s) rol %s\n", app.Resolver.ResolveActorDisplayName(cmd.Context()), s.Username, s.Role)
			return nil
		},
	}
}

func pingCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Comprueba la conexión con el servidor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.requireServer(cmd.Context(), false); err != nil {
				return err
			}
			base := app.API.APIBase()
			if base == "" {
				base = "mismo origen"
			}
			app.printf("Servidor disponible (API: %s)\n", base)
			return nil
		},
	}
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}
