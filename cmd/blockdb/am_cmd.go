package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blockdb-go/blockdb/am"
	"github.com/blockdb-go/blockdb/internal/utils"
)

func newTreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "am",
		Short: "Work with B+ tree indexes",
	}
	cmd.AddCommand(newTreeCreateCmd(), newTreeInsertCmd(), newTreeScanCmd())
	return cmd
}

func newTreeCreateCmd() *cobra.Command {
	var fieldLen int
	cmd := &cobra.Command{
		Use:   "create <path> <i|f|c>",
		Short: "Create a new B+ tree index over a field of the given type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args[1]) != 1 {
				return fmt.Errorf("field type must be one of i, f, c")
			}
			ft := am.FieldType(args[1][0])
			if err := am.CreateIndex(args[0], ft, fieldLen); err != nil {
				return err
			}
			logger.Infow("tree index created", "path", args[0], "type", args[1])
			return nil
		},
	}
	cmd.Flags().IntVar(&fieldLen, "length", 4, "field width in bytes, for char fields")
	return cmd
}

func encodeKey(ft am.FieldType, raw string) ([]byte, error) {
	switch ft {
	case am.TypeInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, err
		}
		b := make([]byte, 4)
		utils.PutInt32(b, int32(n))
		return b, nil
	case am.TypeFloat:
		f, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return nil, err
		}
		b := make([]byte, 4)
		utils.PutFloat32(b, float32(f))
		return b, nil
	default:
		return []byte(raw), nil
	}
}

func newTreeInsertCmd() *cobra.Command {
	var fieldType string
	cmd := &cobra.Command{
		Use:   "insert <path> <key> <value>",
		Short: "Insert one (key, value) entry into a B+ tree index",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ft := am.FieldType(fieldType[0])
			key, err := encodeKey(ft, args[1])
			if err != nil {
				return err
			}
			value, err := strconv.Atoi(args[2])
			if err != nil {
				return err
			}

			desc, err := am.OpenIndex(args[0])
			if err != nil {
				return err
			}
			defer am.CloseIndex(desc)

			return am.InsertEntry(desc, key, int32(value))
		},
	}
	cmd.Flags().StringVar(&fieldType, "type", "i", "indexed field type: i, f, or c")
	return cmd
}

func newTreeScanCmd() *cobra.Command {
	var fieldType, op string
	cmd := &cobra.Command{
		Use:   "scan <path> <value>",
		Short: "Scan a B+ tree index with one of the six comparison operators",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ft := am.FieldType(fieldType[0])
			value, err := encodeKey(ft, args[1])
			if err != nil {
				return err
			}

			operator, err := parseOperator(op)
			if err != nil {
				return err
			}

			desc, err := am.OpenIndex(args[0])
			if err != nil {
				return err
			}
			defer am.CloseIndex(desc)

			sdesc, err := am.OpenIndexScan(desc, operator, value)
			if err != nil {
				return err
			}
			defer am.CloseIndexScan(sdesc)

			for {
				_, v, err := am.FindNextEntry(sdesc)
				if utils.KindOf(err) == utils.KindEOF {
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Println(v)
			}
		},
	}
	cmd.Flags().StringVar(&fieldType, "type", "i", "indexed field type: i, f, or c")
	cmd.Flags().StringVar(&op, "op", "eq", "eq, ne, lt, le, gt, ge")
	return cmd
}

func parseOperator(op string) (am.Operator, error) {
	switch op {
	case "eq":
		return am.Equal, nil
	case "ne":
		return am.NotEqual, nil
	case "lt":
		return am.LessThan, nil
	case "le":
		return am.LessThanOrEqual, nil
	case "gt":
		return am.GreaterThan, nil
	case "ge":
		return am.GreaterThanOrEqual, nil
	default:
		return 0, fmt.Errorf("unknown operator %q", op)
	}
}
