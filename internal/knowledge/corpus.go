package knowledge

// builtinCorpus is the static exploit-knowledge corpus available even when
// no document store is configured. Order is stable; search tie-breaking
// relies on it.
func builtinCorpus() []Document {
	return []Document{
		{
			ID:   "kb-tautology",
			Name: "boolean-tautology",
			Content: "Boolean tautology injection appends an always-true predicate such as " +
				"OR 1=1 or ' OR '1'='1' to bypass authentication or filter checks. " +
				"Mitigate with parameterized queries and strict input validation.",
			Meta: Metadata{Type: "exploit_pattern", Severity: "high", Category: "boolean_tautology"},
		},
		{
			ID:   "kb-union",
			Name: "union-extraction",
			Content: "UNION SELECT injection merges attacker-chosen columns into a legitimate " +
				"result set, commonly probing information_schema to enumerate tables and " +
				"exfiltrate credentials.",
			Meta: Metadata{Type: "exploit_pattern", Severity: "critical", Category: "union_based"},
		},
		{
			ID:   "kb-comment",
			Name: "comment-truncation",
			Content: "Comment sequences -- # /* truncate the remainder of a SQL statement so " +
				"trailing conditions such as password checks never execute.",
			Meta: Metadata{Type: "exploit_pattern", Severity: "medium", Category: "comment_injection"},
		},
		{
			ID:   "kb-time-blind",
			Name: "time-based-blind",
			Content: "Time-based blind injection calls sleep(), benchmark(), pg_sleep() or " +
				"WAITFOR DELAY and infers data from response latency when no output is " +
				"reflected.",
			Meta: Metadata{Type: "exploit_pattern", Severity: "high", Category: "time_based"},
		},
		{
			ID:   "kb-stacked",
			Name: "stacked-destructive",
			Content: "Stacked queries terminate the original statement with a semicolon and " +
				"append destructive DDL or DML such as DROP TABLE, TRUNCATE or DELETE. " +
				"Deny multi-statement execution and DDL rights to application accounts.",
			Meta: Metadata{Type: "exploit_pattern", Severity: "critical", Category: "destructive_statement"},
		},
		{
			ID:   "kb-obfuscation",
			Name: "obfuscated-payloads",
			Content: "Obfuscated payloads rebuild keywords at runtime with char(), chr(), " +
				"concat(), hex literals like 0x73656c656374, percent encoding or base64 " +
				"so signature filters miss them. Normalization before matching is required.",
			Meta: Metadata{Type: "exploit_pattern", Severity: "high", Category: "obfuscation"},
		},
		{
			ID:   "kb-error-based",
			Name: "error-based-extraction",
			Content: "Error-based extraction abuses extractvalue(), updatexml() or cast " +
				"conversion failures to leak data through database error messages.",
			Meta: Metadata{Type: "exploit_pattern", Severity: "medium", Category: "error_based"},
		},
		{
			ID:   "kb-oob",
			Name: "out-of-band-channels",
			Content: "Out-of-band channels use load_file, INTO OUTFILE, xp_cmdshell or DNS " +
				"lookups to move data or execute commands outside the query response path.",
			Meta: Metadata{Type: "exploit_pattern", Severity: "critical", Category: "command_injection"},
		},
		{
			ID:   "kb-xss",
			Name: "cross-site-scripting",
			Content: "Cross-site scripting plants script tags, javascript: URLs or event " +
				"handlers like onerror= in stored or reflected content. Encode output and " +
				"enforce a Content-Security-Policy.",
			Meta: Metadata{Type: "exploit_pattern", Severity: "high", Category: "xss"},
		},
		{
			ID:   "kb-remediation",
			Name: "remediation-baseline",
			Content: "Baseline remediation: parameterized queries, allow-list input " +
				"validation, least-privilege database accounts, WAF signatures and query " +
				"audit logging cover the large majority of injection classes.",
			Meta: Metadata{Type: "remediation", Severity: "low", Category: "generic"},
		},
	}
}
