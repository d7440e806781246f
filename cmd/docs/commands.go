package docs

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/petlaDB/cmd/util"
	"github.com/ValentinKolb/petlaDB/lib/docstore"
	"github.com/ValentinKolb/petlaDB/lib/document"
	"github.com/spf13/cobra"
)

var (
	// ------------------------------------------------------------------------
	// Collections
	// ------------------------------------------------------------------------

	collectionCmd = &cobra.Command{
		Use:   "collection",
		Short: "List, create and drop collections",
	}
	collectionListCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists all collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := session.DB.ListCollections()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
	collectionCreateCmd = &cobra.Command{
		Use:   "create [name]",
		Short: "Creates a collection (no-op if it exists)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := session.DB.CreateCollection(args[0]); err != nil {
				return err
			}
			fmt.Printf("collection %s created\n", args[0])
			return nil
		},
	}
	collectionDropCmd = &cobra.Command{
		Use:   "drop [name]",
		Short: "Drops a collection with all its documents and indexes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := session.DB.DropCollection(args[0]); err != nil {
				return err
			}
			fmt.Printf("collection %s dropped\n", args[0])
			return nil
		},
	}

	// ------------------------------------------------------------------------
	// Indexes
	// ------------------------------------------------------------------------

	indexCmd = &cobra.Command{
		Use:   "index",
		Short: "List, create and drop indexes",
	}
	indexListCmd = &cobra.Command{
		Use:   "list [collection]",
		Short: "Lists the indexes of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := session.DB.ListIndexes(args[0])
			if err != nil {
				return err
			}
			for _, spec := range specs {
				fmt.Printf("%-20s unique=%t sparse=%t\n", spec.Field, spec.Options.Unique, spec.Options.Sparse)
			}
			return nil
		},
	}
	indexCreateCmd = &cobra.Command{
		Use:   "create [collection] [field]",
		Short: "Creates (or redeclares) an index on a field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			unique, _ := cmd.Flags().GetBool("unique")
			sparse, _ := cmd.Flags().GetBool("sparse")
			opts := docstore.IndexOptions{Unique: unique, Sparse: sparse}
			if err := session.DB.CreateIndex(args[0], args[1], opts); err != nil {
				return err
			}
			fmt.Printf("index %s.%s created\n", args[0], args[1])
			return nil
		},
	}
	indexDropCmd = &cobra.Command{
		Use:   "drop [collection] [field]",
		Short: "Drops an index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := session.DB.DropIndex(args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("index %s.%s dropped\n", args[0], args[1])
			return nil
		},
	}

	// ------------------------------------------------------------------------
	// Documents
	// ------------------------------------------------------------------------

	insertCmd = &cobra.Command{
		Use:   "insert [collection] [json]",
		Short: "Inserts one document (object) or many (array of objects)",
		Long: util.WrapString(`Inserts documents into a collection. The JSON argument may contain comments and trailing commas. Use @path to read it from a file and - to read it from stdin. _id, createdAt and updatedAt are assigned by the database.`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := util.ParseFieldsList(args[1])
			if err != nil {
				return err
			}
			docs, err := session.DB.InsertMany(args[0], list)
			if printErr := util.PrintJSON(docs); printErr != nil {
				return printErr
			}
			return err
		},
	}
	findCmd = &cobra.Command{
		Use:   "find [collection] [filter]",
		Short: "Finds all documents matching the filter",
		Long:  util.WrapString(`Finds documents. The filter is a JSON object, e.g. {"edad": {"$gte": 2}}. Without a filter every document is returned.`),
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := filterArg(args, 1)
			if err != nil {
				return err
			}
			opts, err := findOptions(cmd)
			if err != nil {
				return err
			}
			docs, err := session.DB.Find(args[0], filter, opts)
			if err != nil {
				return err
			}
			return util.PrintJSON(docs)
		},
	}
	findOneCmd = &cobra.Command{
		Use:   "find-one [collection] [filter]",
		Short: "Finds the first document matching the filter",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := filterArg(args, 1)
			if err != nil {
				return err
			}
			doc, found, err := session.DB.FindOne(args[0], filter)
			if err != nil {
				return err
			}
			return printFound(doc, found)
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [collection] [id]",
		Short: "Reads a document by its _id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, found, err := session.DB.FindByID(args[0], args[1])
			if err != nil {
				return err
			}
			return printFound(doc, found)
		},
	}
	updateCmd = &cobra.Command{
		Use:   "update [collection] [filter] [patch]",
		Short: "Merges the patch into the first (or with --many every) matching document",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := util.ParseFields(args[1])
			if err != nil {
				return err
			}
			patch, err := util.ParseFields(args[2])
			if err != nil {
				return err
			}

			if many, _ := cmd.Flags().GetBool("many"); many {
				docs, err := session.DB.UpdateMany(args[0], filter, patch)
				if printErr := util.PrintJSON(docs); printErr != nil {
					return printErr
				}
				return err
			}

			doc, found, err := session.DB.UpdateOne(args[0], filter, patch)
			if err != nil {
				return err
			}
			return printFound(doc, found)
		},
	}
	deleteCmd = &cobra.Command{
		Use:   "delete [collection] [filter]",
		Short: "Deletes the first (or with --many every) matching document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := util.ParseFields(args[1])
			if err != nil {
				return err
			}

			if many, _ := cmd.Flags().GetBool("many"); many {
				n, err := session.DB.DeleteMany(args[0], filter)
				if err != nil {
					return err
				}
				fmt.Printf("deleted %d documents\n", n)
				return nil
			}

			deleted, err := session.DB.DeleteOne(args[0], filter)
			if err != nil {
				return err
			}
			fmt.Printf("deleted=%v\n", deleted)
			return nil
		},
	}
	deleteIDCmd = &cobra.Command{
		Use:   "delete-id [collection] [id]",
		Short: "Deletes a document by its _id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := session.DB.DeleteByID(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("deleted=%v\n", deleted)
			return nil
		},
	}
	countCmd = &cobra.Command{
		Use:   "count [collection] [filter]",
		Short: "Counts the documents matching the filter",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := filterArg(args, 1)
			if err != nil {
				return err
			}
			n, err := session.DB.Count(args[0], filter)
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
	distinctCmd = &cobra.Command{
		Use:   "distinct [collection] [field] [filter]",
		Short: "Lists the distinct values of a field",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := filterArg(args, 2)
			if err != nil {
				return err
			}
			values, err := session.DB.Distinct(args[0], args[1], filter)
			if err != nil {
				return err
			}
			return util.PrintJSON(values)
		},
	}
)

func init() {
	collectionCmd.AddCommand(collectionListCmd, collectionCreateCmd, collectionDropCmd)
	indexCmd.AddCommand(indexListCmd, indexCreateCmd, indexDropCmd)

	indexCreateCmd.Flags().Bool("unique", false, util.WrapString("Reject two documents with the same value"))
	indexCreateCmd.Flags().Bool("sparse", false, util.WrapString("Leave documents without the field out of the index"))

	findCmd.Flags().String("sort", "", util.WrapString("Comma separated sort keys, prefix a field with - for descending order (e.g. -edad,nombre)"))
	findCmd.Flags().Int("skip", 0, util.WrapString("Number of documents to skip"))
	findCmd.Flags().Int("limit", 0, util.WrapString("Maximum number of documents to return (0 = no limit)"))

	updateCmd.Flags().Bool("many", false, util.WrapString("Update every matching document"))
	deleteCmd.Flags().Bool("many", false, util.WrapString("Delete every matching document"))
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// filterArg parses the optional filter at position i, a missing filter matches everything
func filterArg(args []string, i int) (docstore.Filter, error) {
	if len(args) <= i {
		return nil, nil
	}
	return util.ParseFields(args[i])
}

func findOptions(cmd *cobra.Command) (*docstore.FindOptions, error) {
	opts := &docstore.FindOptions{}
	opts.Skip, _ = cmd.Flags().GetInt("skip")
	opts.Limit, _ = cmd.Flags().GetInt("limit")

	sortSpec, _ := cmd.Flags().GetString("sort")
	sort, err := parseSort(sortSpec)
	if err != nil {
		return nil, err
	}
	opts.Sort = sort
	return opts, nil
}

// parseSort parses "-edad,nombre" or "edad:-1,nombre:1"
func parseSort(spec string) ([]docstore.SortField, error) {
	var fields []docstore.SortField
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		field := docstore.SortField{Field: part, Order: 1}
		if name, order, ok := strings.Cut(part, ":"); ok {
			o, err := strconv.Atoi(order)
			if err != nil {
				return nil, fmt.Errorf("invalid sort order in %q: %w", part, err)
			}
			field = docstore.SortField{Field: name, Order: o}
		} else if strings.HasPrefix(part, "-") {
			field = docstore.SortField{Field: part[1:], Order: -1}
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func printFound(doc document.Document, found bool) error {
	if !found {
		fmt.Println("not found")
		return nil
	}
	return util.PrintJSON(doc)
}
