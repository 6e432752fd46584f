package prompt

// builtinTemplates maps template name to content.
var builtinTemplates = map[string]string{
	"curator-system.md":       curatorSystem,
	"reliability.md":          reliabilityTemplate,
	"analyst-system.md":       analystSystem,
	"router.md":               routerTemplate,
	"draft-instructional.md":  draftInstructionalTemplate,
	"draft-narrative.md":      draftNarrativeTemplate,
	"critique.md":             critiqueTemplate,
	"revise.md":               reviseTemplate,
	"no-sources.md":           noSourcesTemplate,
	"broadcaster-system.md":   broadcasterSystem,
	"script.md":               scriptTemplate,
	"reviewer-system.md":      reviewerSystem,
	"ai-review.md":            aiReviewTemplate,
	"failure-analysis.md":     failureAnalysisTemplate,
	"optimizer-system.md":     optimizerSystem,
	"optimizer.md":            optimizerTemplate,
	"optimizer-judge.md":      optimizerJudgeTemplate,
	"optimizer-revise.md":     optimizerReviseTemplate,
	"issue.md":                issueTemplate,
}

const curatorSystem = `You are a skeptical librarian who checks whether a book is a credible source.`

const reliabilityTemplate = `Rate the credibility of this book from 0 to 10.

Title: {{title}}
Authors: {{authors}}
Description: {{description}}

Respond with JSON only: {"score": <number>, "reason": "<one sentence>"}
`

const analystSystem = `You translate books into engineering terms for software engineers.`

const routerTemplate = `Classify the text below as "instructional" or "narrative". Answer with one word.

{{text}}
`

const draftInstructionalTemplate = `Turn the methods in this text into engineering practices: inputs, steps, outputs, failure modes.

{{text}}
`

const draftNarrativeTemplate = `Extract the decisions and trade-offs in this story and restate each as an engineering lesson.

{{text}}
`

const critiqueTemplate = `Compare the draft with the original text. List factual errors and claims the original does not support.
If the draft is faithful and complete, reply with {{sentinel}}.

## Original
{{text}}

## Draft
{{draft}}
`

const reviseTemplate = `Revise the draft to address the feedback. Stay faithful to the original text.

## Feedback
{{feedback}}

## Draft
{{draft}}

## Original
{{text}}
`

const noSourcesTemplate = `

No external discussion was found for "{{topic}}". Rely on your own knowledge of the book and say so.
`

const broadcasterSystem = `You write podcast scripts for two hosts.`

const scriptTemplate = `Write a dialogue between {{host_a}} and {{host_b}} covering the analysis below.
Respond with a JSON array only: [{"speaker": "<name>", "text": "<line>"}]

{{analysis}}
`

const reviewerSystem = `You are a senior reviewer guarding the main branch.`

const aiReviewTemplate = `Review this pull request diff.
{{#if rules}}
## House rules
{{rules}}
{{/if}}

## Diff
{{diff}}

Respond with JSON only: {"approved": <true|false>, "summary": "<findings>"}
`

const failureAnalysisTemplate = `The test run below failed. Name the root cause and the smallest fix.
{{#if rules}}
## House rules
{{rules}}
{{/if}}

## Failure log
{{failure_log}}
`

const optimizerSystem = `You improve prompts using evidence from past failures.`

const optimizerTemplate = `Rewrite the prompt "{{target}}" so the failures in the history stop recurring.
Keep every double-brace variable it uses. Respond with the new prompt only.

## Current prompt
{{current}}

## Review history
{{history}}
`

const optimizerJudgeTemplate = `Judge the candidate prompt against the current one and the history.
If it keeps every variable and addresses the failures, reply with {{sentinel}}; otherwise list the problems.

## Current prompt
{{current}}

## Candidate
{{candidate}}

## Review history
{{history}}
`

const optimizerReviseTemplate = `Revise the candidate prompt to address the feedback. Respond with the prompt only.

## Feedback
{{feedback}}

## Candidate
{{candidate}}

## Current prompt
{{current}}
`

const issueTemplate = `@jules

This is an auto-generated issue based on the request: "{{request}}"

### Step 1: The Failing Test
Write a failing test that captures the request before changing code.

### Step 2: The Implementation
Make the smallest change that turns the test green.

### Acceptance Criteria
- The new test passes.
- The existing suite passes.
{{#if history}}

### Known Pitfalls
{{history}}
{{/if}}
`
