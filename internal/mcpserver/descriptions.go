package mcpserver

// Tool descriptions tell the client when to call each tool and how to
// read what comes back.

func describeAnalyze() string {
	return `Runs vigil's rules over Go, C# and Java sources and returns the issues found.

USE WHEN:
- Reviewing a change for nil dereferences, division by zero or dead conditions
- Finding functions that are too complex or too deeply nested
- Looking for duplicated branches and loops that exit on their first pass

INTERPRETING RESULTS:
- Each diagnostic has a rule ID, a severity, a message and a file:line:column
- Severities from most to least urgent: blocker, critical, major, minor, info
- Secondary locations explain the main one, such as each +1 of a complexity score
- errors lists units that failed to load or rules that failed on a file; the other results are still valid

RETURNS:
- files: number of source files analyzed
- diagnostics: sorted by file, line, column and rule
- summary: totals by severity and by rule`
}

func describeListRules() string {
	return `Lists every rule vigil can run with its default state and severity.

USE WHEN:
- Choosing which rules to pass to the analyze tool
- Checking whether a rule is on by default before tuning configuration

INTERPRETING RESULTS:
- default_enabled false means the rule only runs when configuration turns it on
- default_severity applies unless configuration overrides it

RETURNS:
- One entry per rule: id, name, description, default severity, default state and parameters`
}

func describeExplainRule() string {
	return `Explains one rule: what it reports, its defaults and its parameters.

USE WHEN:
- A diagnostic needs more context before fixing it
- Writing configuration for a rule's parameters

INTERPRETING RESULTS:
- Parameters list their default; configuration sets them under rules.<id>.params

RETURNS:
- The rule's descriptor, or an error when the ID is unknown`
}
