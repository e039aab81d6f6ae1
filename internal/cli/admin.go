package cli

import (
	"strings"

	"atmricky/internal/accounting"
	"atmricky/internal/identity"

	"github.com/spf13/cobra"
)

func usuariosCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usuarios",
		Short: "Administración de usuarios (rol dev)",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			_, err := app.requireDev()
			return err
		},
	}

	list := &cobra.Command{
		Use:   "listar",
		Short: "Lista los usuarios",
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := app.Resolver.Users(cmd.Context(), true)
			if err != nil {
				return err
			}
			for _, u := range users {
				app.printf("%-16s %-24s %s\n", u.Username, u.DisplayName, u.Role)
			}
			return nil
		},
	}

	var displayName, pin, role string
	create := &cobra.Command{
		Use:   "crear <username>",
		Short: "Crea un usuario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nu := identity.NewUser{Username: args[0], DisplayName: displayName, Role: role}
			if pin != "" {
				nu.Pin = &pin
			}
			if err := app.Users.Create(cmd.Context(), nu); err != nil {
				return err
			}
			app.printf("Usuario %s creado\n", args[0])
			return nil
		},
	}
	create.Flags().StringVar(&displayName, "nombre", "", "nombre visible")
	create.Flags().StringVar(&pin, "pin", "", "PIN")
	create.Flags().StringVar(&role, "rol", "user", "user o dev")

	var newName, newPin, newRole string
	update := &cobra.Command{
		Use:   "editar <username>",
		Short: "Cambia nombre, PIN o rol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch identity.UserPatch
			if cmd.Flags().Changed("nombre") {
				patch.DisplayName = &newName
			}
			if cmd.Flags().Changed("pin") {
				patch.Pin = &newPin
			}
			if cmd.Flags().Changed("rol") {
				patch.Role = &newRole
			}
			if err := app.Users.Update(cmd.Context(), args[0], patch); err != nil {
				return err
			}
			app.printf("Usuario %s actualizado\n", args[0])
			return nil
		},
	}
	update.Flags().StringVar(&newName, "nombre", "", "nombre visible")
	update.Flags().StringVar(&newPin, "pin", "", "PIN")
	update.Flags().StringVar(&newRole, "rol", "", "user o dev")

	remove := &cobra.Command{
		Use:   "eliminar <username>",
		Short: "Elimina un usuario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Users.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			app.printf("Usuario %s eliminado\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, create, update, remove)
	return cmd
}

func categoriasCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categorias",
		Short: "Categorías de ingresos y egresos",
	}

	var tipo string
	list := &cobra.Command{
		Use:   "listar",
		Short: "Lista las categorías",
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, err := app.Accounting.ListCategories(cmd.Context())
			if err != nil {
				return err
			}
			tipos := []accounting.Tipo{accounting.Ingreso, accounting.Egreso}
			if tipo != "" {
				tipos = []accounting.Tipo{accounting.Tipo(strings.ToUpper(tipo))}
			}
			for _, t := range tipos {
				app.printf("%s\n", t)
				for _, c := range accounting.CategoriesByTipo(all, t) {
					app.printf("  %4d  %s\n", c.ID, c.Nombre)
				}
			}
			return nil
		},
	}
	list.Flags().StringVar(&tipo, "tipo", "", "INGRESO o EGRESO")

	devOnly := func(*cobra.Command, []string) error {
		_, err := app.requireDev()
		return err
	}

	var nombre, nuevoTipo string
	create := &cobra.Command{
		Use:     "crear",
		Short:   "Crea una categoría",
		PreRunE: devOnly,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.Accounting.CreateCategory(cmd.Context(), strings.TrimSpace(nombre), accounting.Tipo(strings.ToUpper(nuevoTipo))); err != nil {
				return err
			}
			app.Bus.PublishMutation(cmd.Context(), "categorias")
			app.printf("Categoría creada\n")
			return nil
		},
	}
	create.Flags().StringVar(&nombre, "nombre", "", "nombre")
	create.Flags().StringVar(&nuevoTipo, "tipo", "", "INGRESO o EGRESO")

	var editNombre, editTipo string
	update := &cobra.Command{
		Use:     "editar <id>",
		Short:   "Renombra o cambia el tipo de una categoría",
		Args:    cobra.ExactArgs(1),
		PreRunE: devOnly,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var patch accounting.CategoryPatch
			if cmd.Flags().Changed("nombre") {
				n := strings.TrimSpace(editNombre)
				patch.Nombre = &n
			}
			if cmd.Flags().Changed("tipo") {
				t := accounting.Tipo(strings.ToUpper(editTipo))
				patch.Tipo = &t
			}
			if err := app.Accounting.UpdateCategory(cmd.Context(), id, patch); err != nil {
				return err
			}
			app.Bus.PublishMutation(cmd.Context(), "categorias")
			app.printf("Categoría %d actualizada\n", id)
			return nil
		},
	}
	update.Flags().StringVar(&editNombre, "nombre", "", "nuevo nombre")
	update.Flags().StringVar(&editTipo, "tipo", "", "INGRESO o EGRESO")

	remove := &cobra.Command{
		Use:     "eliminar <id>",
		Short:   "Elimina una categoría",
		Args:    cobra.ExactArgs(1),
		PreRunE: devOnly,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := app.Accounting.DeleteCategory(cmd.Context(), id); err != nil {
				return err
			}
			app.Bus.PublishMutation(cmd.Context(), "categorias")
			app.printf("Categoría %d eliminada\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, create, update, remove)
	return cmd
}
