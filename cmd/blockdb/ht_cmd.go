package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blockdb-go/blockdb/ht"
	"github.com/blockdb-go/blockdb/internal/record"
)

func newHashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ht",
		Short: "Work with static hash indexes",
	}
	cmd.AddCommand(newHashCreateCmd(), newHashInsertCmd(), newHashDeleteCmd(), newHashPrintCmd())
	return cmd
}

func newHashCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <path> <buckets>",
		Short: "Create a new hash index with a fixed number of buckets",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			buckets, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return err
			}
			if err := ht.CreateIndex(args[0], uint32(buckets)); err != nil {
				return err
			}
			logger.Infow("hash index created", "path", args[0], "buckets", buckets)
			return nil
		},
	}
}

func newHashInsertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insert <path> <id> <name> <surname> <city>",
		Short: "Insert one record into a hash index",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}

			desc, err := ht.OpenIndex(args[0])
			if err != nil {
				return err
			}
			defer ht.CloseFile(desc)

			return ht.InsertEntry(desc, record.New(int32(id), args[2], args[3], args[4]))
		},
	}
}

func newHashDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <path> <id>",
		Short: "Delete the record with the given id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}

			desc, err := ht.OpenIndex(args[0])
			if err != nil {
				return err
			}
			defer ht.CloseFile(desc)

			return ht.DeleteEntry(desc, int32(id))
		},
	}
}

func newHashPrintCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "print <path>",
		Short: "Print one record by id, or every record if --id is omitted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := ht.OpenIndex(args[0])
			if err != nil {
				return err
			}
			defer ht.CloseFile(desc)

			var filter *int32
			if id != "" {
				n, err := strconv.Atoi(id)
				if err != nil {
					return err
				}
				v := int32(n)
				filter = &v
			}

			lines, err := ht.PrintAllEntries(desc, filter)
			if err != nil {
				return err
			}
			for _, l := range lines {
				fmt.Println(l)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "print only the record with this id")
	return cmd
}
