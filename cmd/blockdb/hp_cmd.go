package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blockdb-go/blockdb/hp"
	"github.com/blockdb-go/blockdb/internal/record"
)

func newHeapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hp",
		Short: "Work with heap files",
	}
	cmd.AddCommand(newHeapCreateCmd(), newHeapInsertCmd(), newHeapGetCmd(), newHeapPrintCmd())
	return cmd
}

func newHeapCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <path>",
		Short: "Create a new, empty heap file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := hp.CreateFile(args[0]); err != nil {
				return err
			}
			logger.Infow("heap file created", "path", args[0])
			return nil
		},
	}
}

func newHeapInsertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insert <path> <id> <name> <surname> <city>",
		Short: "Insert one record into a heap file",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}

			desc, err := hp.OpenFile(args[0])
			if err != nil {
				return err
			}
			defer hp.CloseFile(desc)

			rowID, err := hp.InsertEntry(desc, record.New(int32(id), args[2], args[3], args[4]))
			if err != nil {
				return err
			}
			fmt.Println(rowID)
			return nil
		},
	}
}

func newHeapGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <path> <rowid>",
		Short: "Print the record at a row id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rowID, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}

			desc, err := hp.OpenFile(args[0])
			if err != nil {
				return err
			}
			defer hp.CloseFile(desc)

			rec, err := hp.GetEntry(desc, int32(rowID))
			if err != nil {
				return err
			}
			fmt.Println(rec.String())
			return nil
		},
	}
}

func newHeapPrintCmd() *cobra.Command {
	var attr, value string
	cmd := &cobra.Command{
		Use:   "print <path>",
		Short: "Print every record, optionally filtered by one attribute",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := hp.OpenFile(args[0])
			if err != nil {
				return err
			}
			defer hp.CloseFile(desc)

			lines, err := hp.PrintAllEntries(desc, record.Attr(attr), value)
			if err != nil {
				return err
			}
			for _, l := range lines {
				fmt.Println(l)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&attr, "attr", "", "attribute to filter on: id, name, surname, city")
	cmd.Flags().StringVar(&value, "value", "", "value to match against --attr")
	return cmd
}
