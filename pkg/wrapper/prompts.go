package wrapper

import (
	"fmt"

	"github.com/checkmarxDev/audit-wrapper/pkg/message"
)

const sensitiveFilesSystemInput = `You will be provided with a list of files paths.
Your task is to identify which files are most likely to contain sensitive code, base your expectations on the path of the file.
Understand that a main file is a file that is likely to contain the main logic of the application, those types of files are usually the most sensitive ones.
Remove all files which are irrelevant to the analysis.
Sort paths from most sensitive to least sensitive.
Output is formatted as JSON with key sensitiveFiles containing a list of objects with keys:
path, which is the path of the file containing sensitive code
language, which is the programming language of the file`

const sensitiveFilesUserExample = `[{'path': 'cloned_repo/main.py', 'language': 'Python'}]`

const sensitiveFilesAssistantExample = `{ "sensitiveFiles": [ { "path": "cloned_repo/main.py", "language": "Python" } ] }`

const securitySystemInput = `You will be provided with a piece of %[1]s code.
Your task is to check code security.
If you find a possible security issue, you should provide a comment and a code suggestion to fix the issue (it must be code replacing existing one).
Output is formatted as JSON with key 'issues' containing a list, each entry of the list corresponds to a different issue in the code, formatted as JSON objects with keys:
language, which is always %[1]s
lineNumber, which is starting line where the issue occurs
initialCode, which is the code that is causing the issue ensure to include previous and next lines which are relevant
solvingCode, which is a possible solution to the issue in code
comment, which is a short description of the issue
suggestion, which is a description of a possible solution to the issue`

const reliabilitySystemInput = `You will be provided with a piece of %s code.
Your task is to check code reliability.
If you find an unhandled error/exception, you should provide a comment and a code suggestion to fix the issue.
Output is formatted as JSON with key 'issues' containing a list, each entry of the list corresponds to a different issue in the code, formatted as JSON objects with keys:
lineNumber, which is starting line where the issue occurs
initialCode, which is the code that is causing the issue ensure to include previous and next lines which are relevant
solvingCode, which is a possible solution to the issue in code
comment, which is a short description of the issue
suggestion, which is a description of a possible solution to the issue`

// SensitiveFilesConversation is the system prompt, one worked example and the real file list.
func SensitiveFilesConversation(files []File) message.Conversation {
	return message.Conversation{
		message.System(sensitiveFilesSystemInput),
		message.User(sensitiveFilesUserExample),
		message.Assistant(sensitiveFilesAssistantExample),
		message.User(FormatFiles(files)),
	}
}

// AnalysisConversation is the audit prompt followed by the code as-is.
func AnalysisConversation(code, language string, auditType AuditType) message.Conversation {
	var systemInput string
	if auditType == AuditSecurity {
		systemInput = fmt.Sprintf(securitySystemInput, language)
	} else {
		systemInput = fmt.Sprintf(reliabilitySystemInput, language)
	}
	return message.Conversation{
		message.System(systemInput),
		message.User(code),
	}
}
