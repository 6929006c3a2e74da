// Package openaicompat provides the Chat Completions client used for every
// LLM call in researchflow.
//
// The same implementation talks to OpenAI-style endpoints and to Azure OpenAI
// deployments; setting AzureAPIVersion switches URL routing and auth headers:
//
//	p := openaicompat.New(openaicompat.Config{
//	    APIKey:          cfg.APIKey,
//	    BaseURL:         "https://myresource.openai.azure.com",
//	    DefaultModel:    "gpt-4o",
//	    AzureAPIVersion: "2024-06-01",
//	}, logger)
package openaicompat
