package query

import "golang.org/x/text/cases"

var foldCase = cases.Fold()

func fold(s string) string { return foldCase.String(s) }
