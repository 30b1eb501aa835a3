package sql

import "strings"

// isSafeIdentifier 判断名称是否可以直接作为表名或列名拼进语句。
//
// 接受 foo、bar_1 以及 schema.table 这样的限定名：每段非空，
// 首字符为 ASCII 字母或下划线，其余为字母、数字或下划线。
func isSafeIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" || isDigit(part[0]) {
			return false
		}
		for i := 0; i < len(part); i++ {
			if c := part[i]; !isLetter(c) && !isDigit(c) && c != '_' {
				return false
			}
		}
	}
	return true
}

func isLetter(c byte) bool { return (c|0x20) >= 'a' && (c|0x20) <= 'z' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
