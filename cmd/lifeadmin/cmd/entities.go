package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mfenderov/lifeadmin/pkg/models"
	"github.com/spf13/cobra"
)

var (
	entityType       string
	entityIdentifier string
	entityOwner      string
	entityMetadata   string
	entityAll        bool
)

var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "Manage people, vehicles, pets, properties and businesses",
}

var entitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entities",
	RunE:  runEntitiesList,
}

var entitiesAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an entity",
	Long: `Add an entity that documents can be attributed to.

Examples:
  lifeadmin entities add "Family car" --type vehicle --metadata '{"make":"Toyota","year":2019}'
  lifeadmin entities add "Rex" --type pet --owner <person-id>`,
	Args: cobra.ExactArgs(1),
	RunE: runEntitiesAdd,
}

var entitiesDeactivateCmd = &cobra.Command{
	Use:   "deactivate <entity-id>",
	Short: "Deactivate an entity",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntitiesDeactivate,
}

var entitiesAssignCmd = &cobra.Command{
	Use:   "assign <item-id> <entity-id>",
	Short: "Attribute a document to an entity",
	Long: `Attribute a document to an entity. Pass "" as the entity id to remove the link.

Examples:
  lifeadmin entities assign 3f1c2a9e-... 9b0d4e11-...`,
	Args: cobra.ExactArgs(2),
	RunE: runEntitiesAssign,
}

func init() {
	rootCmd.AddCommand(entitiesCmd)
	entitiesCmd.AddCommand(entitiesListCmd, entitiesAddCmd, entitiesDeactivateCmd, entitiesAssignCmd)

	entitiesListCmd.Flags().StringVar(&entityType, "type", "", "only entities of this type")
	entitiesListCmd.Flags().BoolVar(&entityAll, "all", false, "include inactive entities")

	entitiesAddCmd.Flags().StringVar(&entityType, "type", "", "person, vehicle, pet, property, business or group (required)")
	entitiesAddCmd.Flags().StringVar(&entityIdentifier, "identifier", "", "registration, policy number or similar")
	entitiesAddCmd.Flags().StringVar(&entityOwner, "owner", "", "owning entity id")
	entitiesAddCmd.Flags().StringVar(&entityMetadata, "metadata", "", "type-specific details as JSON")
	entitiesAddCmd.MarkFlagRequired("type")
}

func runEntitiesList(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, needs{})
	if err != nil {
		return err
	}
	defer a.Close()

	entities, err := a.store.ListEntities(ctx, models.EntityType(entityType), !entityAll)
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		fmt.Println("No entities.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tNAME\tIDENTIFIER\tOWNER\tACTIVE")
	for _, e := range entities {
		owner := ""
		if e.Owner != nil {
			owner = e.Owner.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n", e.ID, e.EntityType, e.Name, e.Identifier, owner, e.IsActive)
	}
	return w.Flush()
}

func runEntitiesAdd(cmd *cobra.Command, args []string) error {
	entity := &models.Entity{
		EntityType: models.EntityType(entityType),
		Name:       args[0],
		Identifier: entityIdentifier,
		OwnerID:    models.StringPtr(entityOwner),
	}
	if !entity.EntityType.Valid() {
		return fmt.Errorf("unknown entity type %q", entityType)
	}
	if entityMetadata != "" {
		meta, _ := models.NewEntityMetadata(entity.EntityType)
		if err := json.Unmarshal([]byte(entityMetadata), meta); err != nil {
			return fmt.Errorf("invalid --metadata: %w", err)
		}
		if err := entity.SetMetadata(meta); err != nil {
			return err
		}
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, needs{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.CreateEntity(ctx, entity); err != nil {
		return fmt.Errorf("failed to add entity: %w", err)
	}
	fmt.Printf("Added %s %q as %s\n", entity.EntityType, entity.Name, entity.ID)
	return nil
}

func runEntitiesDeactivate(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, needs{})
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.DeactivateEntity(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("Deactivated %s\n", args[0])
	return nil
}

func runEntitiesAssign(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, needs{})
	if err != nil {
		return err
	}
	defer a.Close()

	itemID, entityID := args[0], args[1]
	if err := a.store.AssignEntity(ctx, itemID, entityID); err != nil {
		return err
	}
	if entityID == "" {
		fmt.Printf("Unlinked %s\n", itemID)
		return nil
	}
	entity, err := a.store.GetEntity(ctx, entityID)
	if err != nil {
		return err
	}
	fmt.Printf("Linked %s to %s %q\n", itemID, entity.EntityType, entity.Name)
	return nil
}
